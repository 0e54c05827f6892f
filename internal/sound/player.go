// Package sound plays the bounded alert sequence for completed timers.
//
// A process owns exactly one Player. Starting a new sequence replaces the
// one already playing. Each beep is handed to a Sink; sink failures are
// logged and never interrupt the sequence.
package sound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"timerdeck/pkg/logger"
)

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("sound player closed")

// PlaybackError wraps a sink failure for one beep.
type PlaybackError struct {
	AlertID string
	Err     error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed for alert %s: %v", e.AlertID, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Sink emits one beep.
type Sink interface {
	Beep(ctx context.Context, alertID string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, alertID string) error

func (f SinkFunc) Beep(ctx context.Context, alertID string) error {
	return f(ctx, alertID)
}

// BellSink rings the terminal bell on w.
type BellSink struct {
	W io.Writer
}

func (b BellSink) Beep(ctx context.Context, alertID string) error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// MultiSink beeps every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Beep(ctx context.Context, alertID string) error {
	var errs []error
	for _, s := range m {
		if err := s.Beep(ctx, alertID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options bound a sequence.
type Options struct {
	RepeatInterval time.Duration
	MaxDuration    time.Duration
	MaxBeeps       int
}

// DefaultOptions: a beep every 800ms, at most six, never past five seconds.
func DefaultOptions() Options {
	return Options{
		RepeatInterval: 800 * time.Millisecond,
		MaxDuration:    5 * time.Second,
		MaxBeeps:       6,
	}
}

type sequence struct {
	alertID string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Player is the process's single audio engine.
type Player struct {
	sink Sink
	opts Options

	mu      sync.Mutex
	current *sequence
	closed  bool
}

// NewPlayer returns a Player. Zero option fields fall back to DefaultOptions.
func NewPlayer(sink Sink, opts Options) *Player {
	def := DefaultOptions()
	if opts.RepeatInterval <= 0 {
		opts.RepeatInterval = def.RepeatInterval
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = def.MaxDuration
	}
	if opts.MaxBeeps <= 0 {
		opts.MaxBeeps = def.MaxBeeps
	}
	return &Player{sink: sink, opts: opts}
}

// Play starts the alert sequence for alertID in the background, replacing
// whatever is playing.
func (p *Player) Play(ctx context.Context, alertID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.current != nil {
		p.current.cancel()
	}
	seqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	seq := &sequence{alertID: alertID, cancel: cancel, done: make(chan struct{})}
	p.current = seq
	go p.run(seqCtx, seq)
	return nil
}

// Stop ends the sequence for alertID if it is the one playing.
func (p *Player) Stop(alertID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.alertID == alertID {
		p.current.cancel()
		p.current = nil
	}
}

// Playing returns the alert id of the active sequence, or "".
func (p *Player) Playing() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.alertID
}

// Close stops playback, waits for the sequence to exit and rejects further Play calls.
func (p *Player) Close() {
	p.mu.Lock()
	p.closed = true
	seq := p.current
	p.current = nil
	p.mu.Unlock()
	if seq != nil {
		seq.cancel()
		<-seq.done
	}
}

func (p *Player) run(ctx context.Context, seq *sequence) {
	defer close(seq.done)
	defer p.finish(seq)

	deadline := time.NewTimer(p.opts.MaxDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(p.opts.RepeatInterval)
	defer ticker.Stop()

	p.beep(ctx, seq.alertID)
	for count := 1; count < p.opts.MaxBeeps; {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.beep(ctx, seq.alertID)
			count++
		}
	}
}

func (p *Player) beep(ctx context.Context, alertID string) {
	if err := p.sink.Beep(ctx, alertID); err != nil {
		logger.Warn(ctx, "Alert playback failed", "error", &PlaybackError{AlertID: alertID, Err: err})
	}
}

func (p *Player) finish(seq *sequence) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == seq {
		p.current = nil
	}
	seq.cancel()
}
