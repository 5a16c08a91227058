package middleware

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/G1D0/reqtrace/internal/clientip"
	"github.com/G1D0/reqtrace/internal/tracelog"
)

// sizePlaceholder stands in for a missing Content-Length on the END line.
const sizePlaceholder = "-"

// State is the lifecycle position of a RequestContext.
type State int32

const (
	NotStarted State = iota
	Started
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Started:
		return "started"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// RequestContext is the per-request state attached by the binder. Its
// fields are set before downstream handlers run and never change after.
type RequestContext struct {
	TraceID   string
	StartTime time.Time
	Log       *tracelog.Logger
	ClientIP  string
	Method    string
	Path      string

	state atomic.Int32
}

// State reports where the request is in its lifecycle.
func (rc *RequestContext) State() State {
	return State(rc.state.Load())
}

// IDGenerator produces trace identifiers.
type IDGenerator interface {
	Generate() string
}

// Observer is notified of lifecycle transitions. Implementations must be
// safe for concurrent use.
type Observer interface {
	RequestStarted(method string)
	RequestCompleted(method string, status int, elapsed time.Duration)
	// DuplicateFinish is called for every finish signal after the first.
	DuplicateFinish()
}

type nopObserver struct{}

func (nopObserver) RequestStarted(string)                       {}
func (nopObserver) RequestCompleted(string, int, time.Duration) {}
func (nopObserver) DuplicateFinish()                            {}

// Binder ties request start and response completion to log output.
type Binder struct {
	ids       IDGenerator
	loggers   *tracelog.Factory
	now       func() time.Time
	observer  Observer
	separator bool
	logger    *slog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithClock replaces time.Now for start times and elapsed computation.
func WithClock(now func() time.Time) Option {
	return func(b *Binder) { b.now = now }
}

// WithObserver registers o for lifecycle notifications.
func WithObserver(o Observer) Option {
	return func(b *Binder) { b.observer = o }
}

// WithSeparator toggles the rule written before each START line.
func WithSeparator(on bool) Option {
	return func(b *Binder) { b.separator = on }
}

// WithLogger sets the process logger used to report recovered faults.
func WithLogger(l *slog.Logger) Option {
	return func(b *Binder) { b.logger = l }
}

// NewBinder returns a Binder that names requests with ids and logs through
// loggers.
func NewBinder(ids IDGenerator, loggers *tracelog.Factory, opts ...Option) *Binder {
	b := &Binder{
		ids:       ids,
		loggers:   loggers,
		now:       time.Now,
		observer:  nopObserver{},
		separator: true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle begins the request lifecycle and then calls next. next always
// runs, even if Begin failed part way; in that case the RequestContext it
// receives may be incomplete.
func (b *Binder) Handle(req Request, resp Response, next func(*RequestContext)) {
	rc := &RequestContext{}
	b.safeBegin(rc, req, resp)
	next(rc)
}

// Begin assigns the trace id, start time and scoped logger, writes the
// START line and registers the END line on resp's finish event.
func (b *Binder) Begin(req Request, resp Response) *RequestContext {
	rc := &RequestContext{}
	b.begin(rc, req, resp)
	return rc
}

func (b *Binder) safeBegin(rc *RequestContext, req Request, resp Response) {
	defer func() {
		if v := recover(); v != nil {
			b.logger.Error("request trace setup failed", "panic", fmt.Sprint(v), "trace_id", rc.TraceID)
		}
	}()
	b.begin(rc, req, resp)
}

func (b *Binder) begin(rc *RequestContext, req Request, resp Response) {
	rc.TraceID = b.ids.Generate()
	rc.StartTime = b.now()
	rc.Log = b.loggers.For(rc.TraceID)
	rc.ClientIP = clientip.FromRemoteAddr(req.RemoteAddr())
	rc.Method = req.Method()
	rc.Path = req.Path()
	rc.state.Store(int32(Started))

	if b.separator {
		_ = b.loggers.Separator()
	}
	rc.Log.Info(fmt.Sprintf("START: %s - %s %s", rc.ClientIP, rc.Method, rc.Path))
	b.observer.RequestStarted(rc.Method)

	resp.OnFinish(func() { b.complete(rc, resp) })
}

// complete writes the END line on the first finish signal only.
func (b *Binder) complete(rc *RequestContext, resp Response) {
	if !rc.state.CompareAndSwap(int32(Started), int32(Completed)) {
		b.observer.DuplicateFinish()
		return
	}

	elapsed := b.now().Sub(rc.StartTime)
	status := resp.StatusCode()
	size := resp.Header("Content-Length")
	if size == "" {
		size = sizePlaceholder
	}

	rc.Log.Info(fmt.Sprintf("END: %s - %s %s %d %s %d ms",
		rc.ClientIP, rc.Method, rc.Path, status, size, elapsed.Milliseconds()))
	b.observer.RequestCompleted(rc.Method, status, elapsed)
}
