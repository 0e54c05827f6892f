package models

import "time"

// Command actions accepted from the command topic.
const (
	ActionAdd     = "add"
	ActionEdit    = "edit"
	ActionDelete  = "delete"
	ActionToggle  = "toggle"
	ActionRestart = "restart"
	ActionDismiss = "dismiss"
)

// TimerCommand is the message payload consumed from Kafka.
type TimerCommand struct {
	Action      string    `json:"action"`
	ID          string    `json:"id,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Hours       *int      `json:"hours,omitempty"`
	Minutes     *int      `json:"minutes,omitempty"`
	Seconds     *int      `json:"seconds,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// TimerEvent is the message payload published to the event topic.
type TimerEvent struct {
	Type       string    `json:"type"`
	TimerID    string    `json:"timer_id,omitempty"`
	Timer      *Timer    `json:"timer,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
