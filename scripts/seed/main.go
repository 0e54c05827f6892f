// Seed appends sample timers to the configured storage backend. Run from project root: go run ./scripts/seed
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"timerdeck/internal/config"
	"timerdeck/internal/models"
	"timerdeck/internal/storage"
	"timerdeck/internal/storage/backends"

	"github.com/google/uuid"
)

var samples = []struct {
	title    string
	duration int
}{
	{"Tea", 180},
	{"Eggs", 420},
	{"Pomodoro", 1500},
	{"Break", 300},
	{"Pasta", 600},
	{"Bread proof", 3600},
}

func main() {
	loadEnvFile(".env")

	ctx := context.Background()
	cfg := config.Get()
	backend, err := backends.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Storage backend unavailable:", err)
		os.Exit(1)
	}
	adapter := storage.NewAdapter(backend)

	total := 12
	if v, err := strconv.Atoi(os.Getenv("SEED_COUNT")); err == nil && v > 0 {
		total = v
	}

	timers := adapter.Load(ctx)
	start := time.Now()
	for i := 0; i < total; i++ {
		s := samples[i%len(samples)]
		timers = append(timers, models.Timer{
			ID:            uuid.New().String(),
			Title:         fmt.Sprintf("%s %d", s.title, i+1),
			Description:   "Seeded timer",
			Duration:      s.duration,
			RemainingTime: s.duration,
			CreatedAt:     start.Add(time.Duration(i) * time.Millisecond).UnixMilli(),
		})
	}
	adapter.Save(ctx, timers)
	if err := adapter.Ping(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Storage not reachable after save:", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %d timers (%d total) in %v via %s\n", total, len(timers), time.Since(start), cfg.StorageBackend)
}

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
