// Package config handles YAML configuration for muisti, with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
	OTEL    OTELConfig    `yaml:"otel"`
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig holds durable store settings.
type StorageConfig struct {
	Dir string `yaml:"dir" env:"MUISTI_STORAGE_DIR"`
}

// EngineConfig holds memory engine settings.
type EngineConfig struct {
	CacheCapacity    int    `yaml:"cache_capacity" env:"MUISTI_CACHE_CAPACITY"`
	RetentionStr     string `yaml:"retention" env:"MUISTI_RETENTION"`
	SweepIntervalStr string `yaml:"sweep_interval" env:"MUISTI_SWEEP_INTERVAL"`
	WarmupWindowStr  string `yaml:"warmup_window" env:"MUISTI_WARMUP_WINDOW"`
	JournalDir       string `yaml:"journal_dir" env:"MUISTI_JOURNAL_DIR"`
	DisableIndexing  bool   `yaml:"disable_event_indexing" env:"MUISTI_DISABLE_EVENT_INDEXING"`

	Retention     time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`
	WarmupWindow  time.Duration `yaml:"-"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `yaml:"endpoint" env:"MUISTI_OTEL_ENDPOINT"`
	Insecure    bool          `yaml:"insecure" env:"MUISTI_OTEL_INSECURE"`
	ServiceName string        `yaml:"service_name" env:"MUISTI_OTEL_SERVICE_NAME"`
	Traces      TracesConfig  `yaml:"traces"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `yaml:"enabled" env:"MUISTI_OTEL_TRACES_ENABLED"`
	SampleRate float64 `yaml:"sample_rate" env:"MUISTI_OTEL_TRACES_SAMPLE_RATE"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"MUISTI_OTEL_METRICS_ENABLED"`
}

// APIConfig holds HTTP listener settings.
type APIConfig struct {
	Addr        string `yaml:"addr" env:"MUISTI_API_ADDR"`
	MetricsAddr string `yaml:"metrics_addr" env:"MUISTI_METRICS_ADDR"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"MUISTI_LOG_LEVEL"`
}

// Load reads a YAML config file, applies environment overrides, and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./data"
	}
	if cfg.Engine.RetentionStr == "" {
		cfg.Engine.RetentionStr = "720h" // 30 days
	}
	if cfg.Engine.SweepIntervalStr == "" {
		cfg.Engine.SweepIntervalStr = "24h"
	}
	if cfg.Engine.WarmupWindowStr == "" {
		cfg.Engine.WarmupWindowStr = "1h"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "muisti"
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = ":8080"
	}
	if cfg.API.MetricsAddr == "" {
		cfg.API.MetricsAddr = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	pairs := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"engine.retention", cfg.Engine.RetentionStr, &cfg.Engine.Retention},
		{"engine.sweep_interval", cfg.Engine.SweepIntervalStr, &cfg.Engine.SweepInterval},
		{"engine.warmup_window", cfg.Engine.WarmupWindowStr, &cfg.Engine.WarmupWindow},
	}
	for _, p := range pairs {
		d, err := time.ParseDuration(p.raw)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", p.name, p.raw, err)
		}
		*p.dst = d
	}
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.Engine.Retention <= 0 {
		return fmt.Errorf("engine: retention must be positive")
	}
	if c.Engine.SweepInterval <= 0 {
		return fmt.Errorf("engine: sweep_interval must be positive")
	}
	if c.Engine.CacheCapacity < 0 {
		return fmt.Errorf("engine: cache_capacity must not be negative")
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}
