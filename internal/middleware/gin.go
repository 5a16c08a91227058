package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/G1D0/reqtrace/internal/tracelog"
)

// Keys set on gin.Context by Gin.
const (
	GinTraceIDKey     = "traceId"
	GinRequestTimeKey = "requestTime"
	GinLogKey         = "log"
)

// Gin binds the request lifecycle to a gin engine. The END line is written
// after the rest of the chain has run, or when it panics; the panic is then
// re-raised for gin.Recovery or the server.
func Gin(b *Binder, opts ...TraceOption) gin.HandlerFunc {
	cfg := newTraceConfig(opts)
	return func(c *gin.Context) {
		w := &ginWriter{ResponseWriter: c.Writer}
		c.Writer = w
		resp := &ginResponse{w: w, head: c.Request.Method == http.MethodHead}
		defer func() {
			if v := recover(); v != nil {
				resp.aborted = true
				resp.finish()
				panic(v)
			}
			resp.finish()
		}()

		b.Handle(httpRequest{c.Request}, resp, func(rc *RequestContext) {
			c.Set(GinTraceIDKey, rc.TraceID)
			c.Set(GinRequestTimeKey, rc.StartTime)
			c.Set(GinLogKey, rc.Log)
			c.Request = c.Request.WithContext(NewContext(c.Request.Context(), rc))
			if cfg.header != "" && rc.TraceID != "" {
				c.Header(cfg.header, rc.TraceID)
			}
			c.Next()
		})
	}
}

// GinLogger returns the scoped logger Gin stored on c, or nil.
func GinLogger(c *gin.Context) *tracelog.Logger {
	if v, ok := c.Get(GinLogKey); ok {
		if l, ok := v.(*tracelog.Logger); ok {
			return l
		}
	}
	return nil
}

// ginWriter records whether the body was flushed, which rules out an
// implicit Content-Length.
type ginWriter struct {
	gin.ResponseWriter
	flushed bool
}

func (w *ginWriter) Flush() {
	w.flushed = true
	w.ResponseWriter.Flush()
}

type ginResponse struct {
	w       *ginWriter
	head    bool
	aborted bool
	hooks   []func()
}

func (r *ginResponse) StatusCode() int {
	if r.aborted && !r.w.Written() && r.w.Status() == http.StatusOK {
		return http.StatusInternalServerError
	}
	return r.w.Status()
}

func (r *ginResponse) Header(name string) string {
	v := r.w.Header().Get(name)
	if v != "" || http.CanonicalHeaderKey(name) != "Content-Length" || r.aborted {
		return v
	}
	// Size is -1 until something is written.
	size := int64(max(r.w.Size(), 0))
	return implicitLength(r.w.Header(), r.w.Status(), size, r.w.flushed, r.head)
}

func (r *ginResponse) OnFinish(fn func()) { r.hooks = append(r.hooks, fn) }

func (r *ginResponse) finish() {
	for _, fn := range r.hooks {
		fn()
	}
}
