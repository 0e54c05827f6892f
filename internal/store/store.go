// Package store owns the in-memory timer collection.
//
// All lifecycle operations go through Store. Each mutation is applied under a
// single lock, written through to the persister, then published to
// subscribers in the order the mutations happened. A tick (AdvanceAll) is
// one mutation, so no other operation can observe a half-advanced collection.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"timerdeck/internal/models"
	"timerdeck/pkg/logger"
)

// ErrNotFound is returned by lookups for unknown ids.
var ErrNotFound = errors.New("timer not found")

// Op names the operation behind a Change.
type Op string

const (
	OpAdd     Op = "add"
	OpDelete  Op = "delete"
	OpToggle  Op = "toggle"
	OpTick    Op = "tick"
	OpRestart Op = "restart"
	OpEdit    Op = "edit"
)

// Transition is one timer's state before and after an operation.
// Before is nil for adds; After is nil for deletes.
type Transition struct {
	Before *models.Timer
	After  *models.Timer
}

// ID returns the id of the timer the transition concerns.
func (tr Transition) ID() string {
	if tr.After != nil {
		return tr.After.ID
	}
	if tr.Before != nil {
		return tr.Before.ID
	}
	return ""
}

// Completed reports whether the transition is a running timer reaching zero.
func (tr Transition) Completed() bool {
	return tr.Before != nil && tr.After != nil &&
		tr.Before.IsRunning && tr.Before.RemainingTime > 0 && tr.After.RemainingTime <= 0
}

// Change is published to subscribers after every mutation.
type Change struct {
	Op          Op
	Transitions []Transition
}

// Persister receives the full collection after every mutation.
type Persister interface {
	Save(ctx context.Context, timers []models.Timer)
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

type subscriber struct {
	id int
	fn func(context.Context, Change)
}

// Store is the authoritative timer collection.
type Store struct {
	mu     sync.Mutex
	timers []models.Timer

	// emitMu is taken before mu is released so persistence and publication
	// happen in mutation order.
	emitMu    sync.Mutex
	persister Persister

	subMu   sync.RWMutex
	subs    []subscriber
	nextSub int

	now   func() time.Time
	newID func() string
}

// New returns a store seeded with initial (typically the persisted collection).
// persister may be nil.
func New(initial []models.Timer, persister Persister, opts ...Option) *Store {
	s := &Store{
		timers:    append([]models.Timer(nil), initial...),
		persister: persister,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every future Change and returns a function that
// removes it. fn runs synchronously on the mutating goroutine and must not
// call mutating Store methods.
func (s *Store) Subscribe(fn func(context.Context, Change)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Timers returns a copy of the collection in insertion order.
func (s *Store) Timers() []models.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the timer with id.
func (s *Store) Get(id string) (models.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.timers[i], true
	}
	return models.Timer{}, false
}

// Len is the number of timers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Add appends a timer built from payload. The payload must already be valid.
func (s *Store) Add(ctx context.Context, payload models.NewTimer) models.Timer {
	var added models.Timer
	s.mutate(ctx, func() (Change, bool) {
		added = models.Timer{
			ID:            s.newID(),
			Title:         payload.Title,
			Description:   payload.Description,
			Duration:      payload.Duration,
			RemainingTime: payload.RemainingTime,
			IsRunning:     payload.IsRunning,
			CreatedAt:     s.now().UnixMilli(),
		}
		if added.RemainingTime <= 0 || added.RemainingTime > added.Duration {
			added.RemainingTime = added.Duration
		}
		s.timers = append(s.timers, added)
		after := added
		return Change{Op: OpAdd, Transitions: []Transition{{After: &after}}}, true
	})
	logger.Debug(ctx, "Timer added", "id", added.ID, "duration", added.Duration)
	return added
}

// Delete removes the timer with id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) bool {
	return s.mutate(ctx, func() (Change, bool) {
		i := s.indexLocked(id)
		if i < 0 {
			return Change{}, false
		}
		before := s.timers[i]
		s.timers = append(s.timers[:i:i], s.timers[i+1:]...)
		return Change{Op: OpDelete, Transitions: []Transition{{Before: &before}}}, true
	})
}

// Toggle flips IsRunning. A depleted timer is never started; the toggle is
// still published so observers can react to the attempt.
func (s *Store) Toggle(ctx context.Context, id string) (models.Timer, bool) {
	return s.update(ctx, id, OpToggle, func(t *models.Timer) {
		if t.IsRunning {
			t.IsRunning = false
			return
		}
		if t.RemainingTime > 0 {
			t.IsRunning = true
		}
	})
}

// PlayPause is the play/pause button: a depleted timer is rewound and
// started, anything else is toggled. Both steps happen under one lock, so a
// tick cannot land between the rewind and the start; subscribers still see a
// restart followed by a toggle.
func (s *Store) PlayPause(ctx context.Context, id string) (models.Timer, bool) {
	var result models.Timer
	ok := s.mutateMany(ctx, func() ([]Change, bool) {
		i := s.indexLocked(id)
		if i < 0 {
			return nil, false
		}
		t := &s.timers[i]
		var changes []Change
		if t.Depleted() {
			before := *t
			t.RemainingTime = t.Duration
			t.IsRunning = false
			after := *t
			changes = append(changes, Change{Op: OpRestart, Transitions: []Transition{{Before: &before, After: &after}}})
		}
		before := *t
		if t.IsRunning {
			t.IsRunning = false
		} else if t.RemainingTime > 0 {
			t.IsRunning = true
		}
		after := *t
		result = after
		changes = append(changes, Change{Op: OpToggle, Transitions: []Transition{{Before: &before, After: &after}}})
		return changes, true
	})
	if !ok {
		logger.Debug(ctx, "Timer not found", "id", id, "op", "playpause")
	}
	return result, ok
}

// Restart rewinds the timer to its full duration and stops it.
func (s *Store) Restart(ctx context.Context, id string) (models.Timer, bool) {
	return s.update(ctx, id, OpRestart, func(t *models.Timer) {
		t.RemainingTime = t.Duration
		t.IsRunning = false
	})
}

// Edit applies partial updates, then rewinds and stops the timer.
func (s *Store) Edit(ctx context.Context, id string, updates models.TimerUpdates) (models.Timer, bool) {
	return s.update(ctx, id, OpEdit, func(t *models.Timer) {
		if updates.Title != nil {
			t.Title = *updates.Title
		}
		if updates.Description != nil {
			t.Description = *updates.Description
		}
		if updates.Duration != nil {
			t.Duration = *updates.Duration
		}
		t.RemainingTime = t.Duration
		t.IsRunning = false
	})
}

// AdvanceAll moves every running timer one second closer to zero and stops
// the ones that reach it. It returns the number of timers that changed.
func (s *Store) AdvanceAll(ctx context.Context) int {
	var changed int
	s.mutate(ctx, func() (Change, bool) {
		var transitions []Transition
		for i := range s.timers {
			t := &s.timers[i]
			if !t.IsRunning || t.RemainingTime <= 0 {
				continue
			}
			before := *t
			t.RemainingTime--
			if t.RemainingTime <= 0 {
				t.RemainingTime = 0
				t.IsRunning = false
			}
			after := *t
			transitions = append(transitions, Transition{Before: &before, After: &after})
		}
		changed = len(transitions)
		if changed == 0 {
			return Change{}, false
		}
		return Change{Op: OpTick, Transitions: transitions}, true
	})
	return changed
}

func (s *Store) update(ctx context.Context, id string, op Op, apply func(*models.Timer)) (models.Timer, bool) {
	var result models.Timer
	ok := s.mutate(ctx, func() (Change, bool) {
		i := s.indexLocked(id)
		if i < 0 {
			return Change{}, false
		}
		before := s.timers[i]
		apply(&s.timers[i])
		after := s.timers[i]
		result = after
		return Change{Op: op, Transitions: []Transition{{Before: &before, After: &after}}}, true
	})
	if !ok {
		logger.Debug(ctx, "Timer not found", "id", id, "op", string(op))
	}
	return result, ok
}

// mutate runs fn under the state lock, then persists and publishes in order.
func (s *Store) mutate(ctx context.Context, fn func() (Change, bool)) bool {
	return s.mutateMany(ctx, func() ([]Change, bool) {
		change, ok := fn()
		return []Change{change}, ok
	})
}

// mutateMany is mutate for operations made of several steps. The collection
// is saved once; the changes are published in the order returned.
func (s *Store) mutateMany(ctx context.Context, fn func() ([]Change, bool)) bool {
	s.mu.Lock()
	changes, ok := fn()
	if !ok {
		s.mu.Unlock()
		return false
	}
	snap := s.snapshotLocked()
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	if s.persister != nil {
		s.persister.Save(ctx, snap)
	}
	for _, change := range changes {
		s.publish(ctx, change)
	}
	return true
}

func (s *Store) publish(ctx context.Context, change Change) {
	s.subMu.RLock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.RUnlock()
	for _, sub := range subs {
		sub.fn(ctx, change)
	}
}

func (s *Store) snapshotLocked() []models.Timer {
	out := make([]models.Timer, len(s.timers))
	copy(out, s.timers)
	return out
}

func (s *Store) indexLocked(id string) int {
	for i := range s.timers {
		if s.timers[i].ID == id {
			return i
		}
	}
	return -1
}
