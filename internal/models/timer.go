package models

import "time"

// Timer limits.
const (
	MaxTitleLength = 50
	MinDuration    = 1
	MaxDuration    = 24 * 60 * 60
)

// Timer is a named countdown. Durations are whole seconds; CreatedAt is Unix milliseconds.
type Timer struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Duration      int    `json:"duration"`
	RemainingTime int    `json:"remainingTime"`
	IsRunning     bool   `json:"isRunning"`
	CreatedAt     int64  `json:"createdAt"`
}

// Depleted reports whether the countdown has reached zero.
func (t Timer) Depleted() bool {
	return t.RemainingTime <= 0
}

// Created returns CreatedAt as a time.Time.
func (t Timer) Created() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

// Progress is the remaining share of the duration in [0, 1].
func (t Timer) Progress() float64 {
	if t.Duration <= 0 {
		return 0
	}
	return float64(t.RemainingTime) / float64(t.Duration)
}

// Normalize clamps a record into the timer invariants. It reports false for
// records that cannot be repaired (no id or a non-positive duration).
func Normalize(t Timer) (Timer, bool) {
	if t.ID == "" || t.Duration < MinDuration {
		return t, false
	}
	if t.Duration > MaxDuration {
		t.Duration = MaxDuration
	}
	if t.RemainingTime < 0 {
		t.RemainingTime = 0
	}
	if t.RemainingTime > t.Duration {
		t.RemainingTime = t.Duration
	}
	if t.RemainingTime == 0 {
		t.IsRunning = false
	}
	return t, true
}

// NewTimer is the payload for adding a timer; the store assigns ID and CreatedAt.
type NewTimer struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Duration      int    `json:"duration"`
	RemainingTime int    `json:"remainingTime"`
	IsRunning     bool   `json:"isRunning"`
}

// TimerUpdates is a partial edit. Nil fields are left unchanged.
type TimerUpdates struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
}
