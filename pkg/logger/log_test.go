package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestWithTimerIDTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(&buf, slog.LevelDebug))
	ctx = WithTimerID(ctx, "t-1")

	Info(ctx, "Timer completed", "title", "Tea")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Timer completed", rec["msg"])
	assert.Equal(t, "t-1", rec["timer_id"])
	assert.Equal(t, "Tea", rec["title"])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, defaultLogger, FromContext(context.Background()))
}
