package tracelog

import (
	"errors"
	"log/slog"
	"strings"
)

// Request log levels, most severe first. Verbose sits between info and
// debug on the slog scale.
const (
	LevelError   = slog.LevelError
	LevelWarn    = slog.LevelWarn
	LevelInfo    = slog.LevelInfo
	LevelVerbose = slog.Level(-2)
	LevelDebug   = slog.LevelDebug
)

// Levels is the fixed level set exposed by Logger.
var Levels = []slog.Level{LevelError, LevelWarn, LevelInfo, LevelVerbose, LevelDebug}

// ErrInvalidLevel is returned by ParseLevel for names outside Levels.
var ErrInvalidLevel = errors.New("invalid log level")

// levelWidth is the width of the longest level name, VERBOSE.
const levelWidth = 7

// LevelName returns the upper-case name of l. ok is false for levels
// outside the fixed set, in which case slog's own name is returned.
func LevelName(l slog.Level) (name string, ok bool) {
	switch l {
	case LevelError:
		return "ERROR", true
	case LevelWarn:
		return "WARN", true
	case LevelInfo:
		return "INFO", true
	case LevelVerbose:
		return "VERBOSE", true
	case LevelDebug:
		return "DEBUG", true
	}
	return l.String(), false
}

// ParseLevel parses a level name. An empty name selects debug, which lets
// every request line through.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug":
		return LevelDebug, nil
	case "verbose":
		return LevelVerbose, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelDebug, errors.Join(ErrInvalidLevel, errors.New("unknown level "+s))
	}
}
