// Package slogutil configures the client's log/slog logger, following the
// teacher's Config/SetupLogRotation shape but trimmed for a single-shot CLI:
// no per-request context attributes or handler hooks, since there is no
// request scope here — just one downloader run per process.
package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures the logger New builds.
type Config struct {
	Level     slog.Leveler
	AddSource bool
	// LogPath, if non-empty, additionally writes rotated logs to disk via
	// lumberjack; console output to stderr always happens.
	LogPath string
}

// ParseLevel maps the client's --log-level flag values onto slog levels,
// defaulting to Info for anything unrecognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New builds a slog.Logger writing text-formatted records to stderr and,
// when cfg.LogPath is set, also to a rotating log file.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr

	if cfg.LogPath != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    5,
			MaxAge:     14,
			MaxBackups: 5,
		})
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	})

	return slog.New(handler)
}
