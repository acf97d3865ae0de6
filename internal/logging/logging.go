package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where and how logs are written.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file; empty disables file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation.
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep.
	MaxFiles int
	// WriteToStderr additionally tees output to stderr.
	WriteToStderr bool
	// JSON selects the JSON handler; false selects the text handler.
	JSON bool
}

// DefaultConfig returns sensible defaults for file logging under the
// <codebaseRoot>/.context/ persisted-state layout.
func DefaultConfig(logPath string) Config {
	return Config{
		Level:         "info",
		FilePath:      logPath,
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
		JSON:          true,
	}
}

// Setup builds a slog.Logger over a rotating file writer, optionally
// tee'd to stderr, and returns a cleanup func that flushes and closes
// the underlying file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		handler := newHandler(os.Stderr, cfg)
		return slog.New(handler), func() {}, nil
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	logger := slog.New(newHandler(output, cfg))
	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if cfg.JSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel converts a string level to slog.Level, defaulting to Info
// for anything unrecognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StageAttrs builds the structured attrs every pipeline-stage log line
// carries: requestId, stage name, and (when non-zero) chunkId/attempt.
func StageAttrs(requestID, stage, chunkID string, attempt int) []any {
	attrs := []any{slog.String("requestId", requestID), slog.String("stage", stage)}
	if chunkID != "" {
		attrs = append(attrs, slog.String("chunkId", chunkID))
	}
	if attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", attempt))
	}
	return attrs
}
