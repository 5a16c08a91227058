// Package config loads the YAML configuration of the reqtrace server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/G1D0/reqtrace/internal/observe"
	"github.com/G1D0/reqtrace/internal/tracelog"
)

// Config is the top-level YAML configuration.
type Config struct {
	Listen       string        `yaml:"listen"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	Log          LogConfig     `yaml:"log"`
	Trace        TraceConfig   `yaml:"trace"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TraceConfig configures request log lines.
type TraceConfig struct {
	Level          string `yaml:"level"`
	Color          string `yaml:"color"`
	Separator      bool   `yaml:"separator"`
	ResponseHeader string `yaml:"response_header"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:       ":9000",
		DrainTimeout: 30 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Trace: TraceConfig{
			Level:          "debug",
			Color:          "auto",
			Separator:      true,
			ResponseHeader: "X-Request-ID",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML bytes on top of Default, so omitted keys keep their
// default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// validate checks that the config is semantically valid.
func validate(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen cannot be empty")
	}
	if cfg.DrainTimeout <= 0 {
		return fmt.Errorf("drain_timeout must be positive, got %s", cfg.DrainTimeout)
	}
	if _, err := observe.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	if _, err := tracelog.ParseLevel(cfg.Trace.Level); err != nil {
		return fmt.Errorf("trace.level: %w", err)
	}
	if _, ok := tracelog.ParseColorMode(cfg.Trace.Color); !ok {
		return fmt.Errorf("trace.color must be auto, always or never, got %q", cfg.Trace.Color)
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}
	return nil
}
