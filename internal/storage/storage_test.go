package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdeck/internal/models"
	"timerdeck/internal/storage"
)

type failingBackend struct{}

func (failingBackend) Read(context.Context) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingBackend) Write(context.Context, []byte) error {
	return errors.New("quota exceeded")
}

func sampleTimers() []models.Timer {
	return []models.Timer{
		{ID: "a", Title: "Tea", Duration: 5, RemainingTime: 3, IsRunning: true, CreatedAt: 1700000000000},
		{ID: "b", Title: "Eggs", Description: "soft", Duration: 360, RemainingTime: 360, CreatedAt: 1700000001000},
	}
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := storage.NewAdapter(storage.NewFile(t.TempDir(), "timers"))

	a.Save(ctx, sampleTimers())
	assert.Equal(t, sampleTimers(), a.Load(ctx))
}

func TestFileLoadMissing(t *testing.T) {
	a := storage.NewAdapter(storage.NewFile(t.TempDir(), "timers"))
	got := a.Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFileLoadCorruptIsEmptyAndBackedUp(t *testing.T) {
	dir := t.TempDir()
	f := storage.NewFile(dir, "timers")
	require.NoError(t, os.WriteFile(f.Path(), []byte("{bad json"), 0o600))

	got := storage.NewAdapter(f).Load(context.Background())
	assert.Empty(t, got)

	_, err := os.Stat(filepath.Join(dir, "timers.json.corrupt"))
	assert.NoError(t, err, "corrupt file should be set aside")
}

func TestSavedLayoutUsesFieldNames(t *testing.T) {
	f := storage.NewFile(t.TempDir(), "timers")
	storage.NewAdapter(f).Save(context.Background(), sampleTimers()[:1])

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"id":"a","title":"Tea","description":"","duration":5,"remainingTime":3,"isRunning":true,"createdAt":1700000000000}]`,
		string(data))
}

func TestLoadNormalizesAndDropsBadRecords(t *testing.T) {
	m := storage.NewMemory()
	raw := `[
		{"id":"a","title":"A","duration":10,"remainingTime":0,"isRunning":true},
		{"id":"","title":"no id","duration":10,"remainingTime":10},
		{"id":"a","title":"dup","duration":10,"remainingTime":10},
		{"id":"c","title":"C","duration":10,"remainingTime":50}
	]`
	require.NoError(t, m.Write(context.Background(), []byte(raw)))

	got := storage.NewAdapter(m).Load(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.False(t, got[0].IsRunning)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, 10, got[1].RemainingTime)
}

func TestFailuresAreSwallowed(t *testing.T) {
	a := storage.NewAdapter(failingBackend{})
	assert.NotPanics(t, func() { a.Save(context.Background(), sampleTimers()) })
	assert.Empty(t, a.Load(context.Background()))
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	m := storage.NewMemory()
	storage.NewAdapter(m).Save(context.Background(), nil)

	data, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, 1, m.Writes())
}
