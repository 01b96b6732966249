package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// SetupLogger installs a JSON slog logger on stdout as the process default.
func SetupLogger(level string) *slog.Logger {
	return setup(level, os.Stdout)
}

// SetupLoggerWithFile tees the JSON log stream into a rotating file.
func SetupLoggerWithFile(level string, file FileOptions) *slog.Logger {
	if file.Path == "" {
		return SetupLogger(level)
	}
	rotating := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    orDefault(file.MaxSizeMB, 100),
		MaxBackups: orDefault(file.MaxBackups, 5),
		MaxAge:     orDefault(file.MaxAgeDays, 28),
		Compress:   file.Compress,
	}
	return setup(level, io.MultiWriter(os.Stdout, rotating))
}

func setup(level string, w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
