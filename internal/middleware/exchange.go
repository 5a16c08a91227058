package middleware

// Request is the part of an incoming request the binder reads.
type Request interface {
	Method() string
	Path() string
	// RemoteAddr is the raw peer address, with or without a port.
	RemoteAddr() string
}

// Response is the part of an outgoing response the binder reads.
type Response interface {
	StatusCode() int
	Header(name string) string
	// OnFinish registers fn to run once the response has been sent.
	OnFinish(fn func())
}
