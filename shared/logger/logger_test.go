package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "level %q", tt.input)
	}
}

func TestInitWriter(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	l := InitWriter(&buf, "warn", "json")

	l.Info("dropped")
	l.Warn("kept", "video_id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"video_id":"abc"`)

	buf.Reset()
	InitWriter(&buf, "info", "text").Info("plain", "k", "v")
	assert.Contains(t, buf.String(), "k=v")
}
