package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdeck/internal/models"
	"timerdeck/internal/notify"
	"timerdeck/internal/store"
)

type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	stopped []string
	playing map[string]bool
	err     error
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{playing: map[string]bool{}}
}

func (p *fakePlayer) Play(_ context.Context, alertID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, alertID)
	if p.err != nil {
		return p.err
	}
	p.playing[alertID] = true
	return nil
}

func (p *fakePlayer) Stop(alertID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = append(p.stopped, alertID)
	delete(p.playing, alertID)
}

func (p *fakePlayer) isPlaying(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing[id]
}

type harness struct {
	ctx      context.Context
	store    *store.Store
	player   *fakePlayer
	center   *notify.Center
	notifier *Notifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:    context.Background(),
		store:  store.New(nil, nil),
		player: newFakePlayer(),
		center: notify.NewCenter(notify.Options{}),
	}
	h.notifier = New(h.player, h.center, time.Minute)
	t.Cleanup(h.notifier.Attach(h.store))
	return h
}

func (h *harness) add(title string, duration int) models.Timer {
	return h.store.Add(h.ctx, models.NewTimer{Title: title, Duration: duration, RemainingTime: duration})
}

func (h *harness) run(id string, ticks int) {
	h.store.Toggle(h.ctx, id)
	for i := 0; i < ticks; i++ {
		h.store.AdvanceAll(h.ctx)
	}
}

func TestTeaAlertsExactlyOnce(t *testing.T) {
	h := newHarness(t)
	tea := h.add("Tea", 5)

	h.run(tea.ID, 5)
	got, _ := h.store.Get(tea.ID)
	assert.Equal(t, 0, got.RemainingTime)
	assert.False(t, got.IsRunning)

	for i := 0; i < 3; i++ {
		h.store.AdvanceAll(h.ctx)
	}

	assert.Equal(t, 1, h.notifier.Fired())
	assert.Equal(t, []string{tea.ID}, h.player.played)
	assert.True(t, h.notifier.Alerting(tea.ID))

	active := h.center.Active()
	require.Len(t, active, 1)
	assert.Equal(t, `Timer "Tea" has ended!`, active[0].Message)
	assert.Equal(t, DismissLabel, active[0].ActionLabel)
	assert.Equal(t, notify.KindSuccess, active[0].Kind)
	assert.Equal(t, tea.ID, active[0].TimerID)
}

func TestRestartBeforeCompletionNoAlert(t *testing.T) {
	h := newHarness(t)
	x := h.add("X", 10)

	h.run(x.ID, 3)
	got, _ := h.store.Restart(h.ctx, x.ID)

	assert.Equal(t, 10, got.RemainingTime)
	assert.False(t, got.IsRunning)
	assert.Zero(t, h.notifier.Fired())
	assert.Empty(t, h.player.played)
	assert.Empty(t, h.center.Active())
}

func TestDeleteRetractsAlert(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 1)
	h.run(a.ID, 1)
	require.True(t, h.notifier.Alerting(a.ID))
	require.True(t, h.player.isPlaying(a.ID))

	h.store.Delete(h.ctx, a.ID)

	assert.False(t, h.player.isPlaying(a.ID))
	assert.Empty(t, h.center.Active())
	assert.False(t, h.notifier.Alerting(a.ID))
	assert.False(t, h.notifier.HasEnded(a.ID))
	assert.Empty(t, h.notifier.ActiveAlerts())
}

func TestDismissKeepsFlag(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 1)
	h.run(a.ID, 1)

	assert.True(t, h.notifier.Dismiss(h.ctx, a.ID))
	assert.False(t, h.notifier.Dismiss(h.ctx, a.ID), "nothing left to dismiss")
	assert.False(t, h.player.isPlaying(a.ID))
	assert.Empty(t, h.center.Active())
	assert.True(t, h.notifier.HasEnded(a.ID))
}

func TestDismissFromSurfaceAction(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 1)
	h.run(a.ID, 1)

	active := h.center.Active()
	require.Len(t, active, 1)
	require.True(t, h.center.Dismiss(h.ctx, active[0].Handle))

	assert.False(t, h.notifier.Alerting(a.ID))
	assert.False(t, h.player.isPlaying(a.ID))
}

func TestRestartRetractsAndRearms(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 2)
	h.run(a.ID, 2)
	require.True(t, h.notifier.Alerting(a.ID))

	h.store.Restart(h.ctx, a.ID)
	assert.False(t, h.notifier.Alerting(a.ID))
	assert.False(t, h.notifier.HasEnded(a.ID))
	assert.Empty(t, h.center.Active())

	h.run(a.ID, 2)
	assert.Equal(t, 2, h.notifier.Fired(), "restarted timer alerts again")
}

func TestToggleOnDepletedResets(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 1)
	h.run(a.ID, 1)
	require.True(t, h.notifier.Alerting(a.ID))

	got, _ := h.store.Toggle(h.ctx, a.ID)
	assert.False(t, got.IsRunning, "depleted timer is not started by toggle")
	assert.False(t, h.notifier.Alerting(a.ID))
	assert.False(t, h.notifier.HasEnded(a.ID))
	assert.Empty(t, h.center.Active())
}

func TestPauseDoesNotRetract(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 1)
	b := h.add("B", 5)
	h.run(a.ID, 1)
	h.store.Toggle(h.ctx, b.ID)
	h.store.Toggle(h.ctx, b.ID)

	assert.True(t, h.notifier.Alerting(a.ID))
}

func TestEditRearms(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 1)
	h.run(a.ID, 1)

	d := 2
	h.store.Edit(h.ctx, a.ID, models.TimerUpdates{Duration: &d})
	assert.False(t, h.notifier.Alerting(a.ID))

	h.run(a.ID, 2)
	assert.Equal(t, 2, h.notifier.Fired())
}

func TestTwoTimersAlertIndependently(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 3)
	b := h.add("B", 3)
	h.store.Toggle(h.ctx, a.ID)
	h.store.Toggle(h.ctx, b.ID)
	for i := 0; i < 3; i++ {
		h.store.AdvanceAll(h.ctx)
	}

	assert.Equal(t, 2, h.notifier.Fired())
	assert.ElementsMatch(t, []string{a.ID, b.ID}, h.notifier.ActiveAlerts())
	assert.Len(t, h.center.Active(), 2)
}

func TestPlaybackFailureStillShowsMessage(t *testing.T) {
	h := newHarness(t)
	h.player.err = errors.New("audio context suspended")
	a := h.add("A", 1)
	h.run(a.ID, 1)

	assert.Len(t, h.center.Active(), 1)
	assert.True(t, h.notifier.Alerting(a.ID))
}

func TestLoadedDepletedTimerDoesNotAlert(t *testing.T) {
	ctx := context.Background()
	st := store.New([]models.Timer{{ID: "old", Title: "Old", Duration: 5}}, nil)
	center := notify.NewCenter(notify.Options{})
	n := New(newFakePlayer(), center, time.Minute)
	defer n.Attach(st)()

	st.AdvanceAll(ctx)
	st.Toggle(ctx, "old")
	assert.Zero(t, n.Fired())
}

func TestCloseRetractsAll(t *testing.T) {
	h := newHarness(t)
	a := h.add("A", 1)
	b := h.add("B", 1)
	h.store.Toggle(h.ctx, a.ID)
	h.store.Toggle(h.ctx, b.ID)
	h.store.AdvanceAll(h.ctx)
	require.Len(t, h.notifier.ActiveAlerts(), 2)

	h.notifier.Close(h.ctx)

	assert.Empty(t, h.notifier.ActiveAlerts())
	assert.Empty(t, h.center.Active())
	assert.False(t, h.player.isPlaying(a.ID))
	assert.False(t, h.player.isPlaying(b.ID))

	c := h.add("C", 1)
	h.run(c.ID, 1)
	assert.Equal(t, 2, h.notifier.Fired(), "no alerts after teardown")
}

func TestExpiredMessageEndsAlert(t *testing.T) {
	ctx := context.Background()
	st := store.New(nil, nil)
	center := notify.NewCenter(notify.Options{})
	player := newFakePlayer()
	n := New(player, center, 20*time.Millisecond)
	defer n.Attach(st)()

	a := st.Add(ctx, models.NewTimer{Title: "A", Duration: 1})
	st.Toggle(ctx, a.ID)
	st.AdvanceAll(ctx)
	require.Equal(t, 1, n.Fired())

	require.Eventually(t, func() bool { return !n.Alerting(a.ID) }, time.Second, time.Millisecond)
	assert.Empty(t, center.Active())
	assert.Empty(t, n.ActiveAlerts())
	assert.False(t, player.isPlaying(a.ID))
	assert.True(t, n.HasEnded(a.ID), "expiry does not re-arm the timer")
	assert.False(t, n.Dismiss(ctx, a.ID), "nothing left to dismiss")
	assert.Equal(t, 1, n.Fired())
}
