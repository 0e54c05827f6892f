// Package notify is the transient notification surface shared by form
// validation and completion alerts.
package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"timerdeck/pkg/logger"
)

// Kind is the notification style.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Position is where the UI anchors the notification.
type Position string

const (
	PositionBottomCenter Position = "bottom-center"
	PositionTopRight     Position = "top-right"
)

// Handle identifies a shown notification.
type Handle string

// Notification is one transient message.
type Notification struct {
	Handle      Handle        `json:"handle"`
	Kind        Kind          `json:"kind"`
	Message     string        `json:"message"`
	Position    Position      `json:"position"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"duration_ms"`
	ActionLabel string        `json:"action,omitempty"`
	TimerID     string        `json:"timer_id,omitempty"`
	ShownAt     time.Time     `json:"shown_at"`

	// OnDismiss runs when the user dismisses the notification. Expiry does not call it.
	OnDismiss func() `json:"-"`
	// OnExpire runs when Duration elapses and the notification is withdrawn.
	OnExpire func() `json:"-"`
}

// Sink observes notifications as they are shown and withdrawn.
type Sink interface {
	Shown(ctx context.Context, n Notification)
	Withdrawn(ctx context.Context, h Handle)
}

// Options configure a Center.
type Options struct {
	NarrowViewportWidth     int
	ValidationToastDuration time.Duration
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Center holds the active notifications.
type Center struct {
	opts Options

	mu            sync.Mutex
	active        map[Handle]*entry
	viewportWidth int
	sinks         []Sink
	closed        bool
}

// NewCenter returns an empty Center.
func NewCenter(opts Options) *Center {
	if opts.NarrowViewportWidth <= 0 {
		opts.NarrowViewportWidth = 768
	}
	if opts.ValidationToastDuration <= 0 {
		opts.ValidationToastDuration = 4 * time.Second
	}
	return &Center{opts: opts, active: make(map[Handle]*entry)}
}

// AddSink registers s for future notifications.
func (c *Center) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// SetViewportWidth records the width last reported by the UI. Zero means unknown (wide).
func (c *Center) SetViewportWidth(width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportWidth = width
}

// Position derives the anchor from the viewport width.
func (c *Center) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Center) positionLocked() Position {
	if c.viewportWidth > 0 && c.viewportWidth < c.opts.NarrowViewportWidth {
		return PositionBottomCenter
	}
	return PositionTopRight
}

// Show displays n and returns its handle. A positive Duration withdraws it automatically.
func (c *Center) Show(ctx context.Context, n Notification) Handle {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ""
	}
	n.Handle = Handle(uuid.New().String())
	if n.Position == "" {
		n.Position = c.positionLocked()
	}
	n.DurationMS = n.Duration.Milliseconds()
	n.ShownAt = time.Now()
	e := &entry{n: n}
	if n.Duration > 0 {
		h := n.Handle
		e.timer = time.AfterFunc(n.Duration, func() {
			c.expire(context.WithoutCancel(ctx), h)
		})
	}
	c.active[n.Handle] = e
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()

	for _, s := range sinks {
		s.Shown(ctx, n)
	}
	logger.Debug(ctx, "Notification shown", "handle", string(n.Handle), "kind", string(n.Kind))
	return n.Handle
}

// Withdraw removes the notification without running its dismiss action.
func (c *Center) Withdraw(ctx context.Context, h Handle) bool {
	_, ok := c.remove(ctx, h)
	return ok
}

// Dismiss is the user closing the notification: its action runs, then it is removed.
func (c *Center) Dismiss(ctx context.Context, h Handle) bool {
	n, ok := c.remove(ctx, h)
	if ok && n.OnDismiss != nil {
		n.OnDismiss()
	}
	return ok
}

// Active lists visible notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, 0, len(c.active))
	for _, e := range c.active {
		out = append(out, e.n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShownAt.Before(out[j].ShownAt) })
	return out
}

// ReportError shows a validation failure.
func (c *Center) ReportError(ctx context.Context, message string) {
	c.Show(ctx, Notification{
		Kind:     KindError,
		Message:  message,
		Duration: c.opts.ValidationToastDuration,
	})
}

// Close withdraws everything and rejects later Show calls.
func (c *Center) Close(ctx context.Context) {
	c.mu.Lock()
	c.closed = true
	handles := make([]Handle, 0, len(c.active))
	for h := range c.active {
		handles = append(handles, h)
	}
	c.mu.Unlock()
	for _, h := range handles {
		c.remove(ctx, h)
	}
}

func (c *Center) expire(ctx context.Context, h Handle) {
	n, ok := c.remove(ctx, h)
	if !ok {
		return
	}
	logger.Debug(ctx, "Notification expired", "handle", string(h))
	if n.OnExpire != nil {
		n.OnExpire()
	}
}

func (c *Center) remove(ctx context.Context, h Handle) (Notification, bool) {
	c.mu.Lock()
	e, ok := c.active[h]
	if !ok {
		c.mu.Unlock()
		return Notification{}, false
	}
	delete(c.active, h)
	if e.timer != nil {
		e.timer.Stop()
	}
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()

	for _, s := range sinks {
		s.Withdrawn(ctx, h)
	}
	return e.n, true
}
