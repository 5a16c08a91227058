package clientip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"ipv6 loopback", "::1", "127.0.0.1"},
		{"ipv4 mapped", "::ffff:192.168.1.5", "192.168.1.5"},
		{"plain ipv4", "203.0.113.7", "203.0.113.7"},
		{"plain ipv6", "2001:db8::1", "2001:db8::1"},
		{"ipv4 loopback", "127.0.0.1", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestFromRemoteAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[::1]:54321", "127.0.0.1"},
		{"[::ffff:10.0.0.9]:443", "10.0.0.9"},
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::2]:80", "2001:db8::2"},
		{"::1", "127.0.0.1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FromRemoteAddr(tt.in))
		})
	}
}
