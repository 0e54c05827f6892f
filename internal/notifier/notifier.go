// Package notifier raises one alert per timer completion.
//
// Per-timer runtime state (whether the current countdown already alerted,
// and the live alert if any) is kept here, keyed by timer id, and is never
// persisted. A completed timer alerts again only after a restart, an edit,
// or a toggle on its depleted state resets it.
package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"timerdeck/internal/models"
	"timerdeck/internal/notify"
	"timerdeck/internal/store"
	"timerdeck/pkg/logger"
)

// Player starts and stops the audio sequence for an alert.
type Player interface {
	Play(ctx context.Context, alertID string) error
	Stop(alertID string)
}

// Surface shows and withdraws alert messages.
type Surface interface {
	Show(ctx context.Context, n notify.Notification) notify.Handle
	Withdraw(ctx context.Context, h notify.Handle) bool
}

// DismissLabel is the action shown on completion messages.
const DismissLabel = "Dismiss"

// Message is the text shown when a timer completes.
func Message(title string) string {
	return fmt.Sprintf("Timer \"%s\" has ended!", title)
}

type alertState struct {
	hasEnded bool
	alerting bool
	handle   notify.Handle
}

// Notifier reacts to store changes.
type Notifier struct {
	player        Player
	surface       Surface
	toastDuration time.Duration

	mu     sync.Mutex
	states map[string]*alertState
	fired  int
	closed bool
}

// New returns a Notifier. toastDuration bounds how long the message stays up.
func New(player Player, surface Surface, toastDuration time.Duration) *Notifier {
	return &Notifier{
		player:        player,
		surface:       surface,
		toastDuration: toastDuration,
		states:        make(map[string]*alertState),
	}
}

// Attach subscribes to s and returns the unsubscribe function.
func (n *Notifier) Attach(s *store.Store) func() {
	return s.Subscribe(n.Observe)
}

// Observe applies one store change.
func (n *Notifier) Observe(ctx context.Context, ch store.Change) {
	for _, tr := range ch.Transitions {
		switch ch.Op {
		case store.OpTick:
			if tr.Completed() {
				n.complete(ctx, *tr.After)
			}
		case store.OpRestart, store.OpEdit:
			n.reset(ctx, tr.ID())
		case store.OpToggle:
			if tr.Before != nil && tr.Before.Depleted() {
				n.reset(ctx, tr.ID())
			}
		case store.OpDelete:
			n.forget(ctx, tr.ID())
		}
	}
}

// Dismiss retracts the live alert for id. The timer will not alert again
// until it is restarted.
func (n *Notifier) Dismiss(ctx context.Context, id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.states[id]
	if !ok || !st.alerting {
		return false
	}
	n.retractLocked(ctx, id, st)
	logger.Debug(ctx, "Alert dismissed", "id", id)
	return true
}

// Close retracts every live alert and ignores later completions.
func (n *Notifier) Close(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for id, st := range n.states {
		n.retractLocked(ctx, id, st)
	}
}

// Alerting reports whether id has a live alert. An alert stops being live
// when it is dismissed, retracted, or its message expires.
func (n *Notifier) Alerting(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.states[id]
	return ok && st.alerting
}

// HasEnded reports whether id already alerted for its current countdown.
func (n *Notifier) HasEnded(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.states[id]
	return ok && st.hasEnded
}

// ActiveAlerts lists ids with live alerts.
func (n *Notifier) ActiveAlerts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []string
	for id, st := range n.states {
		if st.alerting {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Fired is the number of alerts raised since start.
func (n *Notifier) Fired() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fired
}

func (n *Notifier) complete(ctx context.Context, t models.Timer) {
	ctx = logger.WithTimerID(ctx, t.ID)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	st := n.stateLocked(t.ID)
	if st.hasEnded {
		return
	}
	st.hasEnded = true
	st.alerting = true
	n.fired++

	id := t.ID
	var handle notify.Handle
	handle = n.surface.Show(ctx, notify.Notification{
		Kind:        notify.KindSuccess,
		Message:     Message(t.Title),
		Duration:    n.toastDuration,
		ActionLabel: DismissLabel,
		TimerID:     id,
		OnDismiss: func() {
			n.Dismiss(context.WithoutCancel(ctx), id)
		},
		OnExpire: func() {
			n.expire(context.WithoutCancel(ctx), id, &handle)
		},
	})
	st.handle = handle
	if err := n.player.Play(ctx, id); err != nil {
		logger.Warn(ctx, "Alert audio unavailable", "error", err)
	}
	logger.Info(ctx, "Timer completed", "title", t.Title)
}

// expire ends an alert whose message timed out. The flag stays set, as for
// Dismiss. handle is read under the lock so it is assigned before use.
func (n *Notifier) expire(ctx context.Context, id string, handle *notify.Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.states[id]
	if !ok || !st.alerting || st.handle != *handle {
		return
	}
	n.player.Stop(id)
	st.alerting = false
	st.handle = ""
	logger.Debug(ctx, "Alert expired", "id", id)
}

func (n *Notifier) reset(ctx context.Context, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.states[id]
	if !ok {
		return
	}
	n.retractLocked(ctx, id, st)
	st.hasEnded = false
}

func (n *Notifier) forget(ctx context.Context, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if st, ok := n.states[id]; ok {
		n.retractLocked(ctx, id, st)
		delete(n.states, id)
	}
}

func (n *Notifier) retractLocked(ctx context.Context, id string, st *alertState) {
	if !st.alerting {
		return
	}
	n.player.Stop(id)
	if st.handle != "" {
		n.surface.Withdraw(ctx, st.handle)
	}
	st.alerting = false
	st.handle = ""
}

func (n *Notifier) stateLocked(id string) *alertState {
	st, ok := n.states[id]
	if !ok {
		st = &alertState{}
		n.states[id] = st
	}
	return st
}
