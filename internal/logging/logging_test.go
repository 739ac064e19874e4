package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Dicklesworthstone/teledash/internal/errs"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("chatty")
	assert.True(t, errs.Is(err, errs.Config))
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "text", &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("fetch failed", "op", "metrics/latest")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "fetch failed")
	assert.Contains(t, out, "metrics/latest")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "json", &buf)
	require.NoError(t, err)

	l.Debug("tick", "points", 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "tick", rec["msg"])
	assert.Equal(t, float64(3), rec["points"])
	assert.Equal(t, "debug", rec["level"])
}

func TestNewWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", "json", &buf)
	require.NoError(t, err)

	l.With("component", "sampler").Info("gpu backoff", "fail_count", 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "sampler", rec["component"])
	assert.Equal(t, float64(2), rec["fail_count"])
}

func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, zapLevel(slog.LevelDebug))
	assert.Equal(t, zapcore.InfoLevel, zapLevel(slog.LevelInfo))
	assert.Equal(t, zapcore.InfoLevel, zapLevel(slog.LevelInfo+2))
	assert.Equal(t, zapcore.WarnLevel, zapLevel(slog.LevelWarn))
	assert.Equal(t, zapcore.ErrorLevel, zapLevel(slog.LevelError+4))
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New("info", "xml", &bytes.Buffer{})
	assert.True(t, errs.Is(err, errs.Config))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teledash.log")
	l, closer, err := Open("info", "text", path, nil)
	require.NoError(t, err)
	l.Info("started")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
}

func TestOpenDiscard(t *testing.T) {
	l, closer, err := Open("info", "text", "", nil)
	require.NoError(t, err)
	require.NotNil(t, closer)
	l.Info("dropped")
	assert.NotNil(t, OrDiscard(nil))
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
