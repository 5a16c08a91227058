// Package traceid generates the per-request correlation identifiers that
// appear on every request log line.
package traceid

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	randomLen = 16
	stampLen  = 8

	// EncodedLen is the length of every identifier returned by Generate.
	EncodedLen = (randomLen + stampLen) * 4 / 3
)

// ErrNoEntropy is returned by New when the randomness source cannot be read.
var ErrNoEntropy = errors.New("traceid: entropy source unavailable")

// Wall-clock anchor taken at process start. Offsets from it use the
// monotonic clock, so ids keep nanosecond ordering even if the wall clock steps.
var (
	epoch     = time.Now()
	epochNano = epoch.UnixNano()
)

// Generator produces identifiers made of a random component followed by a
// high-resolution timestamp, encoded as unpadded URL-safe base64.
type Generator struct {
	entropy  io.Reader
	seq      atomic.Uint64
	logger   *slog.Logger
	degraded sync.Once
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the process logger that reports a failing entropy source.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a Generator drawing randomness from entropy. The source is
// read once up front so a broken source fails at startup rather than per
// request. entropy must be safe for concurrent use.
func New(entropy io.Reader, opts ...Option) (*Generator, error) {
	if entropy == nil {
		return nil, ErrNoEntropy
	}
	if _, err := uuid.NewRandomFromReader(entropy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoEntropy, err)
	}
	g := &Generator{entropy: entropy, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Default returns a Generator backed by crypto/rand.
func Default(opts ...Option) (*Generator, error) {
	return New(rand.Reader, opts...)
}

// Generate returns a new identifier. If the entropy source fails after
// construction, the random half is replaced by a process sequence number
// and the pid, which keeps ids distinct without ever repeating a constant.
// The first such failure is reported on the process logger.
func (g *Generator) Generate() string {
	var raw [randomLen + stampLen]byte

	u, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		g.degraded.Do(func() {
			g.logger.Error("trace id entropy source failed; falling back to sequence ids", "error", err)
		})
		binary.BigEndian.PutUint64(raw[0:8], g.seq.Add(1))
		binary.BigEndian.PutUint64(raw[8:16], uint64(os.Getpid()))
	} else {
		copy(raw[:randomLen], u[:])
	}
	binary.BigEndian.PutUint64(raw[randomLen:], uint64(stamp()))

	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// Decode returns the time component embedded in an identifier.
func Decode(id string) (time.Time, error) {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode trace id: %w", err)
	}
	if len(raw) != randomLen+stampLen {
		return time.Time{}, fmt.Errorf("decode trace id: got %d bytes, want %d", len(raw), randomLen+stampLen)
	}
	ns := int64(binary.BigEndian.Uint64(raw[randomLen:]))
	return time.Unix(0, ns), nil
}

func stamp() int64 {
	return epochNano + int64(time.Since(epoch))
}
