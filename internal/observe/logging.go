// Package observe holds the process logger and the request lifecycle
// metrics.
package observe

import (
	"errors"
	"io"
	"log/slog"
	"strings"
)

// ErrInvalidFormat is returned by NewLogger for formats other than json and text.
var ErrInvalidFormat = errors.New("invalid log format")

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("invalid log level: " + level)
	}
}

// NewLogger creates the process logger. format is "json" or "text";
// empty selects json.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, errors.Join(ErrInvalidFormat, errors.New("unknown format "+format))
	}
}
