package middleware

import (
	"context"
	"net/http"

	"github.com/G1D0/reqtrace/internal/tracelog"
)

// TraceHeader is the default response header that echoes the trace ID.
const TraceHeader = "X-Request-ID"

type requestContextKey struct{}

// TraceOption configures the HTTP adapters.
type TraceOption func(*traceConfig)

type traceConfig struct {
	header string
}

// WithResponseHeader sets the header used to echo the trace ID to the
// client. An empty name disables the echo.
func WithResponseHeader(name string) TraceOption {
	return func(c *traceConfig) { c.header = name }
}

func newTraceConfig(opts []TraceOption) traceConfig {
	cfg := traceConfig{header: TraceHeader}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Trace binds the request lifecycle to net/http. Every request gets a
// fresh trace ID; incoming trace headers are not reused. The END line is
// written when the downstream handler returns. A panic still produces the
// END line, with status 500 unless the handler had already set one, and
// is then re-raised for the server or an outer Recover to handle.
func Trace(b *Binder, opts ...TraceOption) Middleware {
	cfg := newTraceConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := NewResponseCapture(w)
			defer func() {
				if v := recover(); v != nil {
					rc.Abort()
					rc.Finish()
					panic(v)
				}
				rc.Finish()
			}()

			resp := httpResponse{rc: rc, head: r.Method == http.MethodHead}
			b.Handle(httpRequest{r}, resp, func(reqCtx *RequestContext) {
				if cfg.header != "" && reqCtx.TraceID != "" {
					rc.Header().Set(cfg.header, reqCtx.TraceID)
				}
				next.ServeHTTP(rc, r.WithContext(NewContext(r.Context(), reqCtx)))
			})
		})
	}
}

// httpRequest adapts *http.Request to Request.
type httpRequest struct {
	r *http.Request
}

func (h httpRequest) Method() string     { return h.r.Method }
func (h httpRequest) Path() string       { return h.r.URL.Path }
func (h httpRequest) RemoteAddr() string { return h.r.RemoteAddr }

// NewContext returns a copy of ctx carrying rc.
func NewContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext retrieves the RequestContext stored by the tracing middleware.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok && rc != nil
}

// TraceIDFrom retrieves the trace ID from context.
func TraceIDFrom(ctx context.Context) string {
	if rc, ok := FromContext(ctx); ok {
		return rc.TraceID
	}
	return ""
}

// LoggerFrom returns the request's scoped logger. Outside a traced request
// it returns nil, which is safe to call and writes nothing.
func LoggerFrom(ctx context.Context) *tracelog.Logger {
	if rc, ok := FromContext(ctx); ok {
		return rc.Log
	}
	return nil
}
