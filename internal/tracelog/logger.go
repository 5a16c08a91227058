// Package tracelog provides loggers scoped to a single request. Every line
// a scoped logger writes carries the request's trace identifier and the
// call site that produced it.
package tracelog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// callerSkip drops runtime.Callers, Logger.log and the exported level
// method, leaving the frame that called Info, Warn, etc. Update it if
// another layer is inserted between those methods and log.
const callerSkip = 3

const separatorWidth = 100

// Options configures a Factory.
type Options struct {
	// Level is the minimum level written. Nil means LevelDebug.
	Level slog.Leveler
	Color ColorMode
	// Now overrides the line timestamp source.
	Now func() time.Time
}

// Factory builds scoped loggers that share one output sink.
type Factory struct {
	sink  *Sink
	level slog.Leveler
	color bool
	now   func() time.Time
}

// NewFactory returns a Factory writing to w.
func NewFactory(w io.Writer, opts Options) *Factory {
	if opts.Level == nil {
		opts.Level = LevelDebug
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Factory{
		sink:  NewSink(w),
		level: opts.Level,
		color: useColor(opts.Color, w),
		now:   opts.Now,
	}
}

// For returns a logger bound to traceID.
func (f *Factory) For(traceID string) *Logger {
	return &Logger{
		h: &Handler{
			sink:    f.sink,
			level:   f.level,
			color:   f.color,
			traceID: traceID,
		},
		now: f.now,
	}
}

// Separator writes a horizontal rule between requests.
func (f *Factory) Separator() error {
	return f.sink.WriteLine([]byte(strings.Repeat("-", separatorWidth) + "\n"))
}

// Logger writes request-scoped lines at the five fixed levels. Its methods
// never panic and discard write errors. A nil *Logger is a no-op.
type Logger struct {
	h   *Handler
	now func() time.Time
}

// Error writes msg, rendered with fmt.Sprint, at error level.
func (l *Logger) Error(msg any) { l.log(LevelError, msg) }

// Warn writes msg at warn level.
func (l *Logger) Warn(msg any) { l.log(LevelWarn, msg) }

// Info writes msg at info level. START and END lines use this level.
func (l *Logger) Info(msg any) { l.log(LevelInfo, msg) }

// Verbose writes msg at verbose level, between info and debug.
func (l *Logger) Verbose(msg any) { l.log(LevelVerbose, msg) }

// Debug writes msg at debug level.
func (l *Logger) Debug(msg any) { l.log(LevelDebug, msg) }

// At returns a logger that labels its lines with label instead of the
// caller's file and line.
func (l *Logger) At(label string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{h: l.h.withLabel(label), now: l.now}
}

// TraceID returns the identifier the logger is bound to.
func (l *Logger) TraceID() string {
	if l == nil {
		return ""
	}
	return l.h.traceID
}

// Slog exposes the same output through a *slog.Logger, for callers that
// want key/value attributes.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(l.h)
}

func (l *Logger) log(level slog.Level, msg any) {
	if l == nil {
		return
	}
	ctx := context.Background()
	if !l.h.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(callerSkip, pcs[:])
	r := slog.NewRecord(l.now(), level, fmt.Sprint(msg), pcs[0])
	_ = l.h.Handle(ctx, r)
}
