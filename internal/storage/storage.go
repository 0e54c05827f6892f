// Package storage mirrors the timer collection to durable storage.
//
// The store is the source of truth while the process runs; storage is a
// best-effort copy read once at startup and rewritten after every mutation.
// Read and write failures are logged here and never reach the caller.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"timerdeck/internal/models"
	"timerdeck/pkg/logger"
)

// ErrNotFound is returned by a Backend when nothing has been saved yet.
var ErrNotFound = errors.New("storage: no saved timers")

// Backend stores one opaque blob under a fixed key.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Quarantiner is implemented by backends that can set aside an unreadable blob.
type Quarantiner interface {
	Quarantine(ctx context.Context) error
}

// Pinger is implemented by backends with a reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Adapter serializes timer collections to a Backend.
type Adapter struct {
	backend Backend
}

// NewAdapter wraps backend.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Load returns the last saved collection. Missing or corrupt data yields an empty slice.
func (a *Adapter) Load(ctx context.Context) []models.Timer {
	data, err := a.backend.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		logger.Debug(ctx, "No saved timers")
		return []models.Timer{}
	}
	if err != nil {
		logger.Error(ctx, "Failed to load timers", "error", err)
		return []models.Timer{}
	}

	var raw []models.Timer
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Error(ctx, "Saved timers are corrupt; starting empty", "error", err)
		if q, ok := a.backend.(Quarantiner); ok {
			if qerr := q.Quarantine(ctx); qerr != nil {
				logger.Warn(ctx, "Failed to set aside corrupt timers", "error", qerr)
			}
		}
		return []models.Timer{}
	}

	timers := make([]models.Timer, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		n, ok := models.Normalize(t)
		if !ok || seen[n.ID] {
			logger.Warn(ctx, "Dropping unusable saved timer", "id", t.ID, "duration", t.Duration)
			continue
		}
		seen[n.ID] = true
		timers = append(timers, n)
	}
	logger.Info(ctx, "Timers loaded", "count", len(timers))
	return timers
}

// Save overwrites the saved collection. Failures are logged and dropped.
func (a *Adapter) Save(ctx context.Context, timers []models.Timer) {
	if timers == nil {
		timers = []models.Timer{}
	}
	data, err := json.Marshal(timers)
	if err != nil {
		logger.Error(ctx, "Failed to encode timers", "error", err)
		return
	}
	if err := a.backend.Write(ctx, data); err != nil {
		logger.Error(ctx, "Failed to save timers", "error", err, "count", len(timers))
	}
}

// Ping checks the backend when it supports it.
func (a *Adapter) Ping(ctx context.Context) error {
	if p, ok := a.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
