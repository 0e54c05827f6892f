package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdeck/internal/models"
	"timerdeck/internal/store"
	"timerdeck/internal/validation"
)

type recordingDismisser struct {
	ids []string
}

func (d *recordingDismisser) Dismiss(_ context.Context, id string) bool {
	d.ids = append(d.ids, id)
	return true
}

func newWorker() (*Worker, *store.Store, *recordingDismisser) {
	s := store.New(nil, nil)
	d := &recordingDismisser{}
	return New(s, d, validation.New(nil)), s, d
}

func TestAddCommand(t *testing.T) {
	w, s, _ := newWorker()
	err := w.Handle(context.Background(), []byte(`{"action":"add","title":"Tea","minutes":3,"seconds":30}`))
	require.NoError(t, err)

	timers := s.Timers()
	require.Len(t, timers, 1)
	assert.Equal(t, "Tea", timers[0].Title)
	assert.Equal(t, 210, timers[0].Duration)
	assert.Equal(t, 210, timers[0].RemainingTime)
	assert.False(t, timers[0].IsRunning)
	assert.Equal(t, int64(1), w.Processed())
}

func TestAddCommandValidation(t *testing.T) {
	w, s, _ := newWorker()
	err := w.Handle(context.Background(), []byte(`{"action":"add","title":"  ","seconds":5}`))
	require.Error(t, err)
	assert.True(t, validation.IsValidationError(err))
	assert.Equal(t, validation.MsgTitleRequired, err.Error())

	err = w.Handle(context.Background(), []byte(`{"action":"add","title":"Nap"}`))
	assert.Equal(t, validation.MsgZeroDuration, err.Error())
	assert.Zero(t, s.Len())
	assert.Zero(t, w.Processed())
}

func TestEditCommandIsPartial(t *testing.T) {
	ctx := context.Background()
	w, s, _ := newWorker()
	tm := s.Add(ctx, models.NewTimer{Title: "Tea", Description: "green", Duration: 90})
	s.Toggle(ctx, tm.ID)
	s.AdvanceAll(ctx)

	require.NoError(t, w.Handle(ctx, []byte(`{"action":"edit","id":"`+tm.ID+`","title":"Coffee"}`)))

	got, _ := s.Get(tm.ID)
	assert.Equal(t, "Coffee", got.Title)
	assert.Equal(t, "green", got.Description)
	assert.Equal(t, 90, got.Duration)
	assert.Equal(t, 90, got.RemainingTime)
	assert.False(t, got.IsRunning)
}

func TestEditCommandRejectsBadRange(t *testing.T) {
	ctx := context.Background()
	w, s, _ := newWorker()
	tm := s.Add(ctx, models.NewTimer{Title: "Tea", Duration: 90})

	err := w.Handle(ctx, []byte(`{"action":"edit","id":"`+tm.ID+`","minutes":75}`))
	assert.Equal(t, validation.MsgOutOfRange, err.Error())
	got, _ := s.Get(tm.ID)
	assert.Equal(t, 90, got.Duration)
}

func TestLifecycleCommands(t *testing.T) {
	ctx := context.Background()
	w, s, d := newWorker()
	tm := s.Add(ctx, models.NewTimer{Title: "Tea", Duration: 10})
	id := `"id":"` + tm.ID + `"`

	require.NoError(t, w.Handle(ctx, []byte(`{"action":"toggle",`+id+`}`)))
	got, _ := s.Get(tm.ID)
	assert.True(t, got.IsRunning)

	s.AdvanceAll(ctx)
	require.NoError(t, w.Handle(ctx, []byte(`{"action":"restart",`+id+`}`)))
	got, _ = s.Get(tm.ID)
	assert.Equal(t, 10, got.RemainingTime)

	require.NoError(t, w.Handle(ctx, []byte(`{"action":"dismiss",`+id+`}`)))
	assert.Equal(t, []string{tm.ID}, d.ids)

	require.NoError(t, w.Handle(ctx, []byte(`{"action":"delete",`+id+`}`)))
	assert.Zero(t, s.Len())
}

func TestUnknownTimerAndAction(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newWorker()

	err := w.Handle(ctx, []byte(`{"action":"delete","id":"nope"}`))
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = w.Handle(ctx, []byte(`{"action":"explode"}`))
	assert.ErrorIs(t, err, errUnknownAction)

	assert.Error(t, w.Handle(ctx, []byte(`not json`)))
}

func TestStartClosesDoneWhenStopped(t *testing.T) {
	w, _, _ := newWorker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	select {
	case <-w.Start(ctx):
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	assert.Zero(t, w.Processed())
}
