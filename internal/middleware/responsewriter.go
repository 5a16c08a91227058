package middleware

import (
	"net/http"
	"strconv"
)

// chunkingThreshold is how much of an unsized body net/http buffers
// before it gives up on Content-Length and switches to chunked encoding.
const chunkingThreshold = 2048

// ResponseCapture wraps http.ResponseWriter to capture the status code
// and bytes written, and to run finish hooks once the handler chain is
// done with the response.
type ResponseCapture struct {
	http.ResponseWriter
	StatusCode int
	Written    int64

	wroteHeader bool
	flushed     bool
	aborted     bool
	onFinish    []func()
}

// NewResponseCapture wraps a ResponseWriter.
func NewResponseCapture(w http.ResponseWriter) *ResponseCapture {
	return &ResponseCapture{
		ResponseWriter: w,
		StatusCode:     http.StatusOK, // default if WriteHeader is never called
	}
}

// WriteHeader captures the first status code then delegates.
func (rc *ResponseCapture) WriteHeader(code int) {
	if !rc.wroteHeader {
		rc.StatusCode = code
		rc.wroteHeader = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

// Write captures bytes written then delegates.
func (rc *ResponseCapture) Write(b []byte) (int, error) {
	rc.wroteHeader = true
	n, err := rc.ResponseWriter.Write(b)
	rc.Written += int64(n)
	return n, err
}

// Flush forwards to the wrapped writer when it supports flushing.
func (rc *ResponseCapture) Flush() {
	rc.wroteHeader = true
	rc.flushed = true
	if f, ok := rc.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rc *ResponseCapture) Unwrap() http.ResponseWriter {
	return rc.ResponseWriter
}

// Abort marks the response as cut short by a handler panic.
func (rc *ResponseCapture) Abort() {
	rc.aborted = true
}

// OnFinish registers fn to run when Finish is called.
func (rc *ResponseCapture) OnFinish(fn func()) {
	rc.onFinish = append(rc.onFinish, fn)
}

// Finish runs the registered hooks in registration order. It does not
// deduplicate: hooks that must run once guard themselves.
func (rc *ResponseCapture) Finish() {
	for _, fn := range rc.onFinish {
		fn()
	}
}

// httpResponse adapts a ResponseCapture to Response.
type httpResponse struct {
	rc   *ResponseCapture
	head bool
}

// StatusCode reports 500 for a panic that happened before any status was
// chosen; otherwise the first status the handler set.
func (r httpResponse) StatusCode() int {
	if r.rc.aborted && !r.rc.wroteHeader {
		return http.StatusInternalServerError
	}
	return r.rc.StatusCode
}

// Header returns the named response header. Content-Length falls back to
// the length net/http derives for a fully buffered body, since the server
// adds it after the handler returns without touching the header map.
func (r httpResponse) Header(name string) string {
	v := r.rc.Header().Get(name)
	if v != "" || http.CanonicalHeaderKey(name) != "Content-Length" || r.rc.aborted {
		return v
	}
	return implicitLength(r.rc.Header(), r.rc.StatusCode, r.rc.Written, r.rc.flushed, r.head)
}

func (r httpResponse) OnFinish(fn func()) { r.rc.OnFinish(fn) }

// implicitLength returns the Content-Length net/http will send for an
// unsized response, or "" when it will send none: a flushed or oversize
// body goes out chunked, and some statuses carry no body at all.
func implicitLength(h http.Header, status int, written int64, flushed, head bool) string {
	switch {
	case flushed, written > chunkingThreshold:
		return ""
	case h.Get("Transfer-Encoding") != "", !bodyAllowed(status):
		return ""
	case head && written == 0:
		return ""
	}
	return strconv.FormatInt(written, 10)
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
