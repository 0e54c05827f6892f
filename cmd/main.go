package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"timerdeck/internal/config"
	"timerdeck/internal/controller"
	"timerdeck/internal/notifier"
	"timerdeck/internal/notify"
	"timerdeck/internal/queue"
	"timerdeck/internal/routes"
	"timerdeck/internal/scheduler"
	"timerdeck/internal/sound"
	"timerdeck/internal/storage"
	"timerdeck/internal/storage/backends"
	"timerdeck/internal/store"
	"timerdeck/internal/stream"
	"timerdeck/internal/validation"
	"timerdeck/internal/worker"
	"timerdeck/pkg/logger"
)

func main() {
	loadEnvFile(".env")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := config.Load(path); err != nil {
			logger.Error(ctx, "Config file ignored", "error", err, "path", path)
		}
	}
	cfg := config.Get()
	logger.SetDefault(logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel)))

	backend, err := backends.Open(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Storage backend unavailable; exiting", "error", err, "backend", cfg.StorageBackend)
		os.Exit(1)
	}
	adapter := storage.NewAdapter(backend)
	timers := store.New(adapter.Load(ctx), adapter)
	logger.Info(ctx, "Store ready", "timers", timers.Len(), "backend", cfg.StorageBackend)

	hub := stream.NewHub(64)
	defer hub.Attach(timers)()

	center := notify.NewCenter(notify.Options{
		NarrowViewportWidth:     cfg.NarrowViewportWidth,
		ValidationToastDuration: cfg.ValidationToastDuration,
	})
	center.AddSink(hub)

	player := sound.NewPlayer(sound.MultiSink{hub, sound.BellSink{W: os.Stderr}}, sound.Options{
		RepeatInterval: cfg.AlertRepeatInterval,
		MaxDuration:    cfg.AlertMaxDuration,
		MaxBeeps:       cfg.AlertMaxBeeps,
	})
	alerts := notifier.New(player, center, cfg.AlertToastDuration)
	defer alerts.Attach(timers)()

	validator := validation.New(center)

	var workerDone <-chan struct{}
	if cfg.KafkaEnabled() {
		queue.EnsureTopics(ctx, cfg)
		publisher := queue.NewPublisher(queue.Producer(ctx))
		defer publisher.Attach(timers)()
		center.AddSink(publisher)

		// Start the command consumer in background (applies commands to the store)
		workerDone = worker.New(timers, alerts, validator).Start(ctx)
	}

	ticker := scheduler.New(timers, cfg.TickInterval)
	if err := ticker.Start(ctx); err != nil {
		logger.Error(ctx, "Scheduler failed to start", "error", err)
		os.Exit(1)
	}

	handler := &controller.Handler{
		Store:     timers,
		Notifier:  alerts,
		Center:    center,
		Validator: validator,
		Storage:   adapter,
		Hub:       hub,
	}
	server := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     routes.Router(handler, cfg.JWTSecret),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort, "auth", cfg.JWTSecret != "")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	if workerDone != nil {
		select {
		case <-workerDone:
		case <-shutdownCtx.Done():
			logger.Error(ctx, "Worker did not stop before shutdown deadline")
		}
	}
	ticker.Stop()
	alerts.Close(shutdownCtx)
	player.Close()
	center.Close(shutdownCtx)
	if w := queue.Producer(shutdownCtx); w != nil {
		if err := w.Close(); err != nil {
			logger.Error(ctx, "Kafka producer close failed", "error", err)
		}
	}
	logger.Info(ctx, "Server stopped")
}

// loadEnvFile reads a .env file and sets env vars (only if not already set).
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
