package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/model"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("failed on refreshing feed", "feed", "tasks")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "failed on refreshing feed")
	assert.Contains(t, out, "feed=tasks")
}

func TestNewFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "miledo.log")

	logger, closer, err := NewFile(model.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)
	logger.Debug("first")
	require.NoError(t, closer.Close())

	logger, closer, err = NewFile(model.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)
	logger.Debug("second")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestNewFileWithoutPathDiscards(t *testing.T) {
	logger, closer, err := NewFile(model.LogConfig{})
	require.NoError(t, err)
	logger.Error("nowhere")
	assert.NoError(t, closer.Close())
}
