// Package clientip turns raw connection addresses into the form shown in
// request logs.
package clientip

import (
	"net"
	"strings"
)

const (
	loopbackV6   = "::1"
	loopbackV4   = "127.0.0.1"
	mappedPrefix = "::ffff:"
)

// Normalize maps a client address to its display form. A dual-stack
// listener reports IPv4 peers in IPv4-mapped IPv6 notation; those are shown
// as plain IPv4. An empty input stays empty.
func Normalize(raw string) string {
	switch {
	case raw == "":
		return ""
	case raw == loopbackV6:
		return loopbackV4
	case strings.HasPrefix(raw, mappedPrefix):
		return strings.TrimPrefix(raw, mappedPrefix)
	default:
		return raw
	}
}

// FromRemoteAddr normalizes an http.Request.RemoteAddr, which carries the
// peer port ("[::1]:54321"). Addresses without a port are normalized as is.
func FromRemoteAddr(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return Normalize(host)
	}
	return Normalize(addr)
}
