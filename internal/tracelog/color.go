package tracelog

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

// ColorMode selects whether lines carry ANSI color codes.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode accepts "auto", "always" and "never".
func ParseColorMode(s string) (ColorMode, bool) {
	switch s {
	case "", "auto":
		return ColorAuto, true
	case "always":
		return ColorAlways, true
	case "never":
		return ColorNever, true
	}
	return ColorAuto, false
}

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiCyan    = "\x1b[36m"
	ansiRed     = "\x1b[91m"
	ansiGreen   = "\x1b[92m"
	ansiYellow  = "\x1b[93m"
	ansiBlue    = "\x1b[94m"
	ansiMagenta = "\x1b[95m"
	ansiHiCyan  = "\x1b[96m"
	ansiHiWhite = "\x1b[97m"
)

func levelColor(l slog.Level) string {
	switch l {
	case LevelError:
		return ansiRed
	case LevelWarn:
		return ansiYellow
	case LevelInfo:
		return ansiBlue
	case LevelVerbose:
		return ansiHiCyan
	case LevelDebug:
		return ansiGreen
	}
	return ansiHiWhite
}

// useColor resolves ColorAuto against the writer: only terminals get color.
func useColor(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(b []byte, on bool, code, s string) []byte {
	if !on {
		return append(b, s...)
	}
	b = append(b, code...)
	b = append(b, s...)
	return append(b, ansiReset...)
}
