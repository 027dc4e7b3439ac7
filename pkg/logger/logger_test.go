package logger

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/config"
)

func TestColorHandlerPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	h.color = false
	log := slog.New(h).With("component", "ingest").WithGroup("kind")

	log.Debug("hidden")
	log.Info("Persisting nodes", "name", "The Old Mill")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO  Persisting nodes component=ingest kind.name=\"The Old Mill\"")
	assert.NotContains(t, out, "\033[")
}

func TestColorHandlerColors(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorHandler(&buf, nil)
	log := slog.New(h)

	log.Info("Persisting edges")
	log.Warn("slow")
	log.Error("down")

	out := buf.String()
	assert.Contains(t, out, colorGreen)
	assert.Contains(t, out, colorYellow)
	assert.Contains(t, out, colorRed)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loregraph.log")
	log, closer, err := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	log.Info("ingest complete", "nodes", 3)
	require.NoError(t, closer.Close())
	assert.FileExists(t, path)

	_, _, err = New(config.LogConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var quiet, loud bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&loud, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	slog.New(h).Info("hello")
	assert.Empty(t, quiet.String())
	assert.Contains(t, loud.String(), "hello")
}
