package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	shown     []Notification
	withdrawn []Handle
}

func (r *recordingSink) Shown(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, n)
}

func (r *recordingSink) Withdrawn(_ context.Context, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawn = append(r.withdrawn, h)
}

func TestPositionFromViewport(t *testing.T) {
	c := NewCenter(Options{})
	assert.Equal(t, PositionTopRight, c.Position(), "unknown width is treated as wide")

	c.SetViewportWidth(500)
	assert.Equal(t, PositionBottomCenter, c.Position())

	c.SetViewportWidth(767)
	assert.Equal(t, PositionBottomCenter, c.Position())

	c.SetViewportWidth(768)
	assert.Equal(t, PositionTopRight, c.Position())
}

func TestShowWithdraw(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	c := NewCenter(Options{})
	c.AddSink(sink)
	c.SetViewportWidth(400)

	h := c.Show(ctx, Notification{Kind: KindSuccess, Message: "hi", Duration: time.Minute})
	require.NotEmpty(t, h)

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, PositionBottomCenter, active[0].Position)
	assert.Equal(t, int64(60000), active[0].DurationMS)

	assert.True(t, c.Withdraw(ctx, h))
	assert.False(t, c.Withdraw(ctx, h), "second withdraw is a no-op")
	assert.Empty(t, c.Active())
	assert.Len(t, sink.shown, 1)
	assert.Equal(t, []Handle{h}, sink.withdrawn)
}

func TestDismissRunsActionWithdrawDoesNot(t *testing.T) {
	ctx := context.Background()
	c := NewCenter(Options{})
	calls := 0

	h := c.Show(ctx, Notification{Message: "a", OnDismiss: func() { calls++ }})
	c.Withdraw(ctx, h)
	assert.Equal(t, 0, calls)

	h = c.Show(ctx, Notification{Message: "b", OnDismiss: func() { calls++ }})
	assert.True(t, c.Dismiss(ctx, h))
	assert.Equal(t, 1, calls)
	assert.False(t, c.Dismiss(ctx, h))
	assert.Equal(t, 1, calls)
}

func TestExpiry(t *testing.T) {
	c := NewCenter(Options{})
	dismissed := false
	c.Show(context.Background(), Notification{Message: "a", Duration: 5 * time.Millisecond, OnDismiss: func() { dismissed = true }})

	require.Eventually(t, func() bool { return len(c.Active()) == 0 }, time.Second, time.Millisecond)
	assert.False(t, dismissed)
}

func TestExpiryRunsExpireHookOnly(t *testing.T) {
	ctx := context.Background()
	c := NewCenter(Options{})
	expired := make(chan struct{}, 2)
	c.Show(ctx, Notification{Message: "a", Duration: 5 * time.Millisecond, OnExpire: func() { expired <- struct{}{} }})

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("expire hook not called")
	}
	assert.Empty(t, c.Active())

	h := c.Show(ctx, Notification{Message: "b", Duration: time.Minute, OnExpire: func() { expired <- struct{}{} }})
	c.Withdraw(ctx, h)
	assert.Empty(t, expired, "withdraw does not count as expiry")
}

func TestReportError(t *testing.T) {
	c := NewCenter(Options{ValidationToastDuration: time.Minute})
	c.ReportError(context.Background(), "Title is required")

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, KindError, active[0].Kind)
	assert.Equal(t, "Title is required", active[0].Message)
	assert.Equal(t, int64(60000), active[0].DurationMS)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	c := NewCenter(Options{})
	c.Show(ctx, Notification{Message: "a", Duration: time.Minute})
	c.Show(ctx, Notification{Message: "b"})

	c.Close(ctx)
	assert.Empty(t, c.Active())
	assert.Empty(t, c.Show(ctx, Notification{Message: "c"}))
}
