package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"timerdeck/internal/config"
	"timerdeck/internal/models"
	"timerdeck/internal/notify"
	"timerdeck/internal/store"
	"timerdeck/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Event types written to the event topic.
const (
	EventAdded                = "timer.added"
	EventDeleted              = "timer.deleted"
	EventToggled              = "timer.toggled"
	EventTicked               = "timer.ticked"
	EventCompleted            = "timer.completed"
	EventRestarted            = "timer.restarted"
	EventEdited               = "timer.edited"
	EventNotificationShown    = "notification.shown"
	EventNotificationWithdraw = "notification.withdrawn"
)

// EnsureTopics creates the event and command topics with configured partitions (idempotent).
// Call at startup; if it fails (e.g. no broker or topic exists), app still runs.
func EnsureTopics(ctx context.Context, cfg *config.Config) {
	if !cfg.KafkaEnabled() {
		return
	}
	conn, err := kafka.Dial("tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	topics := []kafka.TopicConfig{
		{Topic: cfg.KafkaEventTopic, NumPartitions: cfg.KafkaPartitions, ReplicationFactor: 1},
		{Topic: cfg.KafkaCommandTopic, NumPartitions: cfg.KafkaPartitions, ReplicationFactor: 1},
	}
	if err := ctrlConn.CreateTopics(topics...); err != nil {
		logger.Debug(ctx, "Kafka create topics failed (topics may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topics ensured",
		"events", cfg.KafkaEventTopic, "commands", cfg.KafkaCommandTopic, "partitions", cfg.KafkaPartitions)
}

var (
	writer *kafka.Writer
	wOnce  sync.Once
)

// Producer returns the global Kafka writer for timer events (initialized on first use).
// It is nil when no brokers are configured.
func Producer(ctx context.Context) *kafka.Writer {
	wOnce.Do(func() {
		cfg := config.Get()
		if !cfg.KafkaEnabled() {
			return
		}
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaEventTopic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
		}
		logger.Info(ctx, "Kafka producer initialized", "topic", cfg.KafkaEventTopic, "brokers", cfg.KafkaBrokers)
	})
	return writer
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher writes store changes and notifications to the event topic,
// keyed by timer id so one timer's events stay ordered within a partition.
type Publisher struct {
	w   MessageWriter
	now func() time.Time
}

// NewPublisher returns a Publisher writing to w.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

// Attach subscribes the publisher to s.
func (p *Publisher) Attach(s *store.Store) func() {
	return s.Subscribe(p.Observe)
}

// Observe publishes the events for one change.
func (p *Publisher) Observe(ctx context.Context, ch store.Change) {
	p.publish(ctx, Events(ch, p.now()))
}

// Shown implements notify.Sink.
func (p *Publisher) Shown(ctx context.Context, n notify.Notification) {
	p.publish(ctx, []models.TimerEvent{{
		Type:       EventNotificationShown,
		TimerID:    n.TimerID,
		Message:    n.Message,
		OccurredAt: p.now(),
	}})
}

// Withdrawn implements notify.Sink.
func (p *Publisher) Withdrawn(ctx context.Context, h notify.Handle) {
	p.publish(ctx, []models.TimerEvent{{
		Type:       EventNotificationWithdraw,
		Message:    string(h),
		OccurredAt: p.now(),
	}})
}

func (p *Publisher) publish(ctx context.Context, events []models.TimerEvent) {
	if p.w == nil || len(events) == 0 {
		return
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			logger.Error(ctx, "Timer event encode failed", "error", err, "type", ev.Type)
			continue
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.TimerID), Value: payload})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		logger.Error(ctx, "Timer event publish failed", "error", err, "count", len(msgs))
	}
}

// Events maps a store change to the events published for it. A tick that
// depletes a timer yields timer.completed instead of timer.ticked.
func Events(ch store.Change, at time.Time) []models.TimerEvent {
	events := make([]models.TimerEvent, 0, len(ch.Transitions))
	for _, tr := range ch.Transitions {
		ev := models.TimerEvent{TimerID: tr.ID(), OccurredAt: at}
		if tr.After != nil {
			t := *tr.After
			ev.Timer = &t
		}
		switch ch.Op {
		case store.OpAdd:
			ev.Type = EventAdded
		case store.OpDelete:
			ev.Type = EventDeleted
		case store.OpToggle:
			ev.Type = EventToggled
		case store.OpRestart:
			ev.Type = EventRestarted
		case store.OpEdit:
			ev.Type = EventEdited
		case store.OpTick:
			ev.Type = EventTicked
			if tr.Completed() {
				ev.Type = EventCompleted
			}
		default:
			continue
		}
		events = append(events, ev)
	}
	return events
}

// EventTopic returns the timer events topic name.
func EventTopic() string {
	return config.Get().KafkaEventTopic
}

// CommandTopic returns the timer commands topic name.
func CommandTopic() string {
	return config.Get().KafkaCommandTopic
}

// Brokers returns Kafka broker addresses.
func Brokers() []string {
	return config.Get().KafkaBrokers
}
