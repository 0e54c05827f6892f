// Package scheduler drives the store's once-per-second advance.
//
// There is exactly one Scheduler per process regardless of how many timers
// exist. It keeps no per-timer state. Late ticks are dropped rather than
// replayed, so remaining time counts ticks, not wall-clock seconds.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"timerdeck/pkg/logger"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// DefaultInterval is one tick.
const DefaultInterval = time.Second

// Advancer is the single operation the scheduler drives.
type Advancer interface {
	AdvanceAll(ctx context.Context) int
}

// Scheduler calls AdvanceAll on a fixed interval.
type Scheduler struct {
	target   Advancer
	interval time.Duration
	group    singleflight.Group

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped scheduler. A non-positive interval means DefaultInterval.
func New(target Advancer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{target: target, interval: interval}
}

// Interval is the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start launches the tick loop. It runs until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(loopCtx, s.done)
	logger.Info(ctx, "Tick scheduler started", "interval", s.interval.String())
	return nil
}

// Stop halts the loop and waits for it to exit. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Tick performs one advance pass. Calls that overlap an in-flight pass share
// its result instead of starting another.
func (s *Scheduler) Tick(ctx context.Context) int {
	v, _, _ := s.group.Do("tick", func() (interface{}, error) {
		return s.target.AdvanceAll(ctx), nil
	})
	return v.(int)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Tick scheduler stopped")
			return
		case <-ticker.C:
			if n := s.Tick(ctx); n > 0 {
				logger.Debug(ctx, "Tick", "advanced", n)
			}
		}
	}
}
