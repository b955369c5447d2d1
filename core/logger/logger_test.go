package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(String("module", "tables"))

	log.Info("dataset replaced", String("tag", "booking"), Int("records", 3))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "dataset replaced", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "tables", ctx["module"])
	assert.Equal(t, "booking", ctx["tag"])
	assert.EqualValues(t, 3, ctx["records"])
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(Config{Environment: "production", LogPath: dir, Level: "warn"})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kept")
	assert.NotContains(t, string(raw), "dropped")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := NewLogger(Config{Level: "loud"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}
