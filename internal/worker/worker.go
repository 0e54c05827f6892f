package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"timerdeck/internal/models"
	"timerdeck/internal/queue"
	"timerdeck/internal/store"
	"timerdeck/internal/validation"
	"timerdeck/pkg/logger"

	"github.com/segmentio/kafka-go"
)

var errUnknownAction = errors.New("unknown command action")

// Dismisser retracts a live completion alert.
type Dismisser interface {
	Dismiss(ctx context.Context, id string) bool
}

// Worker applies timer commands from the command topic.
type Worker struct {
	store     *store.Store
	alerts    Dismisser
	validator *validation.Validator
	processed int64
}

// New returns a Worker applying commands to s.
func New(s *store.Store, alerts Dismisser, v *validation.Validator) *Worker {
	return &Worker{store: s, alerts: alerts, validator: v}
}

// Processed is the number of commands applied successfully.
func (w *Worker) Processed() int64 {
	return atomic.LoadInt64(&w.processed)
}

// Start runs the consumer in the background. The returned channel is closed
// once Run has returned and the reader is closed.
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return done
}

// Run starts the Kafka consumer and blocks until ctx is done.
// One consumer per process; replicas share partitions through the consumer group.
func (w *Worker) Run(ctx context.Context) {
	brokers := queue.Brokers()
	if len(brokers) == 0 {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}
	topic := queue.CommandTopic()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "timerdeck-workers",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Kafka consumer started", "topic", topic)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := w.Handle(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

// Handle decodes and applies one command payload.
func (w *Worker) Handle(ctx context.Context, payload []byte) error {
	var cmd models.TimerCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	if err := w.apply(ctx, cmd); err != nil {
		return err
	}
	atomic.AddInt64(&w.processed, 1)
	return nil
}

func (w *Worker) apply(ctx context.Context, cmd models.TimerCommand) error {
	ctx = logger.WithTimerID(ctx, cmd.ID)
	switch cmd.Action {
	case models.ActionAdd:
		form := patch(cmd).Apply(validation.TimerForm{})
		total, err := w.validator.Validate(form)
		if err != nil {
			return err
		}
		t := w.store.Add(ctx, models.NewTimer{
			Title:         form.Title,
			Description:   form.Description,
			Duration:      total,
			RemainingTime: total,
		})
		logger.Info(ctx, "Timer added from command", "id", t.ID)
		return nil
	case models.ActionEdit:
		current, ok := w.store.Get(cmd.ID)
		if !ok {
			return notFound(cmd)
		}
		form := patch(cmd).Apply(validation.FormFromTimer(current))
		total, err := w.validator.Validate(form)
		if err != nil {
			return err
		}
		_, ok = w.store.Edit(ctx, cmd.ID, models.TimerUpdates{
			Title:       &form.Title,
			Description: &form.Description,
			Duration:    &total,
		})
		return found(ok, cmd)
	case models.ActionDelete:
		return found(w.store.Delete(ctx, cmd.ID), cmd)
	case models.ActionToggle:
		_, ok := w.store.PlayPause(ctx, cmd.ID)
		return found(ok, cmd)
	case models.ActionRestart:
		_, ok := w.store.Restart(ctx, cmd.ID)
		return found(ok, cmd)
	case models.ActionDismiss:
		if w.alerts != nil {
			w.alerts.Dismiss(ctx, cmd.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, cmd.Action)
	}
}

// patch is the part of cmd that edits a form.
func patch(cmd models.TimerCommand) validation.FormPatch {
	return validation.FormPatch{
		Title:       cmd.Title,
		Description: cmd.Description,
		Hours:       cmd.Hours,
		Minutes:     cmd.Minutes,
		Seconds:     cmd.Seconds,
	}
}

func found(ok bool, cmd models.TimerCommand) error {
	if ok {
		return nil
	}
	return notFound(cmd)
}

func notFound(cmd models.TimerCommand) error {
	return fmt.Errorf("%s %s: %w", cmd.Action, cmd.ID, store.ErrNotFound)
}
