package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetupLoggerWithFile(t *testing.T) {
	path := t.TempDir() + "/service.log"
	l := SetupLoggerWithFile("debug", FileOptions{Path: path})
	l.Debug("hello", "k", "v")
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
	assert.FileExists(t, path)
}
