package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// SlogLevel maps the configured level name, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
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

// NewLogger builds the process logger. Output goes to File when set and to
// fallback otherwise. The returned close func releases the log file.
func (l LogConfig) NewLogger(fallback io.Writer) (*slog.Logger, func() error, error) {
	output := fallback
	closeFn := func() error { return nil }

	if l.File != "" {
		file, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", l.File, err)
		}
		output = file
		closeFn = file.Close
	}
	if output == nil {
		output = io.Discard
	}

	level := l.SlogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(l.Format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler), closeFn, nil
}
