// Package logging builds the slog logger from the log config section.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nhle/miledo/internal/model"
)

// ParseLevel maps a config level name to a slog level. Unknown names
// mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewStderr returns the CLI logger. verbose forces debug level.
func NewStderr(cfg model.LogConfig, verbose bool) *slog.Logger {
	level := ParseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return New(os.Stderr, level)
}

// NewFile returns the TUI logger, appending to cfg.File. The terminal
// belongs to the UI so nothing is written to stdout or stderr. The
// returned closer releases the file.
func NewFile(cfg model.LogConfig) (*slog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return New(io.Discard, ParseLevel(cfg.Level)), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
	}
	return New(f, ParseLevel(cfg.Level)), f, nil
}
