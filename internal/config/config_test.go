package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G1D0/reqtrace/internal/tracelog"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, validate(Default()))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("full file", func(t *testing.T) {
		path := filepath.Join(dir, "full.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
listen: 127.0.0.1:8081
drain_timeout: 5s
log:
  level: debug
  format: text
trace:
  level: verbose
  color: never
  separator: false
  response_header: X-Trace-ID
metrics:
  enabled: true
  path: /internal/metrics
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8081", cfg.Listen)
		assert.Equal(t, 5*time.Second, cfg.DrainTimeout)
		assert.Equal(t, "text", cfg.Log.Format)
		assert.Equal(t, "verbose", cfg.Trace.Level)
		assert.False(t, cfg.Trace.Separator)
		assert.Equal(t, "X-Trace-ID", cfg.Trace.ResponseHeader)
		assert.Equal(t, "/internal/metrics", cfg.Metrics.Path)

		lvl, err := tracelog.ParseLevel(cfg.Trace.Level)
		require.NoError(t, err)
		assert.Equal(t, tracelog.LevelVerbose, lvl)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listen: :7000\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Listen)
		assert.Equal(t, 30*time.Second, cfg.DrainTimeout)
		assert.True(t, cfg.Trace.Separator)
		assert.Equal(t, "X-Request-ID", cfg.Trace.ResponseHeader)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "listen: [unclosed"},
		{"empty listen", `listen: ""`},
		{"zero drain", "drain_timeout: 0s"},
		{"bad log level", "log:\n  level: loud"},
		{"bad log format", "log:\n  format: xml"},
		{"bad trace level", "trace:\n  level: trace"},
		{"bad color", "trace:\n  color: rainbow"},
		{"relative metrics path", "metrics:\n  path: metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
