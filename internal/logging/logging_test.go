package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "server.log"))
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)
	assert.True(t, cfg.JSON)
}

func TestSetupWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	cfg := Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 3, JSON: true}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, logger)

	logger.Info("indexing started", StageAttrs("req-1", "scan", "", 0)...)

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSetupWithoutFilePathLogsToStderrOnly(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, logger)
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, ParseLevel(tc.input), tc.input)
	}
}

func TestStageAttrsOmitsZeroFields(t *testing.T) {
	attrs := StageAttrs("req-1", "embed", "", 0)
	assert.Len(t, attrs, 2)

	full := StageAttrs("req-1", "embed", "chunk-1", 2)
	assert.Len(t, full, 4)
}

func TestRotatingWriterRotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	w, err := NewRotatingWriter(path, 0, 2) // maxSizeMB=0 rotates on any write
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("some log line that is not tiny\n"))
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "expected at least one rotated file")
}
