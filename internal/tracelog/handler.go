package tracelog

import (
	"context"
	"io"
	"log/slog"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	timeFormat = "2006-01-02T15:04:05.000Z07:00"

	// UnknownCallSite replaces the call-site label when it cannot be resolved.
	UnknownCallSite = "<unknown>"

	callSiteWidth = 16
)

// Sink serializes whole lines onto a shared writer. A line is always
// handed to the writer in a single Write call.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink wraps w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// WriteLine writes b, which must already end in a newline.
func (s *Sink) WriteLine(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(b)
	return err
}

// Handler is a slog.Handler that renders request log lines:
//
//	<time> [ <LEVEL> ] <trace id>  <file:line> :: <message> [key=value ...]
type Handler struct {
	sink    *Sink
	level   slog.Leveler
	color   bool
	traceID string
	label   string
	attrs   string
	group   string
}

var _ slog.Handler = (*Handler)(nil)

// Enabled reports whether l meets the handler's minimum level.
func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle formats r into one line and writes it.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf = paint(buf, h.color, ansiYellow, ts.UTC().Format(timeFormat))

	name, _ := LevelName(r.Level)
	padded := padRight(name, levelWidth)
	buf = append(buf, " [ "...)
	buf = paint(buf, h.color, ansiBold+levelColor(r.Level), padded)
	buf = append(buf, " ] "...)

	buf = paint(buf, h.color, ansiMagenta, h.traceID)
	buf = append(buf, "  "...)
	buf = paint(buf, h.color, ansiCyan, padRight(h.callSite(r.PC), callSiteWidth))
	buf = append(buf, " :: "...)
	buf = append(buf, r.Message...)

	buf = append(buf, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.group, a)
		return true
	})
	buf = append(buf, '\n')

	return h.sink.WriteLine(buf)
}

// WithAttrs returns a handler that appends attrs to every line.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	b := []byte(h.attrs)
	for _, a := range attrs {
		b = appendAttr(b, h.group, a)
	}
	h2.attrs = string(b)
	return &h2
}

// WithGroup qualifies later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	return &h2
}

func (h *Handler) withLabel(label string) *Handler {
	h2 := *h
	h2.label = label
	return &h2
}

// callSite prefers the explicit label, then the record's program counter.
func (h *Handler) callSite(pc uintptr) string {
	if h.label != "" {
		return h.label
	}
	if pc == 0 {
		return UnknownCallSite
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" || frame.Line == 0 {
		return UnknownCallSite
	}
	return path.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

func appendAttr(b []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return b
	}
	if a.Value.Kind() == slog.KindGroup {
		prefix := group
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			b = appendAttr(b, prefix, ga)
		}
		return b
	}
	b = append(b, ' ')
	b = append(b, group...)
	b = append(b, a.Key...)
	b = append(b, '=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		return strconv.AppendQuote(b, v)
	}
	return append(b, v...)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
