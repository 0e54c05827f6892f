// Package stream fans timer changes, notifications and beeps out to
// server-sent event listeners.
package stream

import (
	"context"
	"sync"
	"time"

	"timerdeck/internal/models"
	"timerdeck/internal/notify"
	"timerdeck/internal/store"
)

// Event names sent to listeners.
const (
	EventTimers               = "timers"
	EventNotification         = "notification"
	EventNotificationWithdraw = "notification-withdrawn"
	EventBeep                 = "beep"
)

// Event is one message for listeners.
type Event struct {
	Name string
	Data any
}

// Beep is the payload of EventBeep.
type Beep struct {
	AlertID string    `json:"alertId"`
	At      time.Time `json:"at"`
}

// Withdrawn is the payload of EventNotificationWithdraw.
type Withdrawn struct {
	Handle notify.Handle `json:"handle"`
}

// Hub broadcasts events to subscribed channels. Slow listeners miss events
// rather than block the publisher.
type Hub struct {
	mu        sync.Mutex
	listeners map[chan Event]struct{}
	buffer    int
	dropped   int
}

// NewHub returns a Hub whose listener channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{listeners: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe registers a listener. The returned cancel function closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends ev to every listener without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			h.dropped++
		}
	}
}

// Listeners is the number of subscribed channels.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Dropped counts events skipped because a listener was full.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Attach publishes a snapshot of s after every change.
func (h *Hub) Attach(s *store.Store) func() {
	return s.Subscribe(func(_ context.Context, _ store.Change) {
		h.Publish(Event{Name: EventTimers, Data: s.Timers()})
	})
}

// Snapshot builds the event sent to a listener when it connects.
func Snapshot(timers []models.Timer) Event {
	if timers == nil {
		timers = []models.Timer{}
	}
	return Event{Name: EventTimers, Data: timers}
}

// Shown implements notify.Sink.
func (h *Hub) Shown(_ context.Context, n notify.Notification) {
	h.Publish(Event{Name: EventNotification, Data: n})
}

// Withdrawn implements notify.Sink.
func (h *Hub) Withdrawn(_ context.Context, handle notify.Handle) {
	h.Publish(Event{Name: EventNotificationWithdraw, Data: Withdrawn{Handle: handle}})
}

// Beep implements sound.Sink: the browser plays the tone.
func (h *Hub) Beep(_ context.Context, alertID string) error {
	h.Publish(Event{Name: EventBeep, Data: Beep{AlertID: alertID, At: time.Now()}})
	return nil
}
