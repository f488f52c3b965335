package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is the config file read by Load.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. ENRICH_SERVER__PORT=9000.
const EnvPrefix = "ENRICH_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Converter ConverterConfig `koanf:"converter"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Expiry    ExpiryConfig    `koanf:"expiry"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ConverterConfig points at the external markup <-> semantic converter.
type ConverterConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"` // Duration string like "30s"
}

// PipelineConfig tunes chain execution.
type PipelineConfig struct {
	StepTimeout string `koanf:"step_timeout"` // per remote call
	RunTimeout  string `koanf:"run_timeout"`  // overall deadline for one chain
	UserAgent   string `koanf:"user_agent"`
}

// ExpiryConfig controls the sweep of non-persistent pipeline templates.
type ExpiryConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Interval  string `koanf:"interval"`
	Retention string `koanf:"retention"`
}

type TelemetryConfig struct {
	ServiceName string `koanf:"service_name"`
	Stdout      bool   `koanf:"stdout"`
}

var defaults = map[string]any{
	"server.port":            8080,
	"storage.type":           "sqlite",
	"storage.sqlite.path":    "./data/pipelines.db",
	"converter.timeout":      "30s",
	"pipeline.step_timeout":  "60s",
	"pipeline.run_timeout":   "5m",
	"pipeline.user_agent":    "enrichment-gateway",
	"expiry.enabled":         true,
	"expiry.interval":        "24h",
	"expiry.retention":       "168h",
	"telemetry.service_name": "enrichment-gateway",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory, then environment overrides.
func Load() (*Config, error) {
	return LoadFile(DefaultPath)
}

// LoadFile reads the given YAML file (a missing file is not an error), then
// applies ENRICH_ environment overrides and defaults.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, v := range defaults {
		if !k.Exists(key) {
			k.Set(key, v)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Converter.BaseURL = substituteEnvVars(cfg.Converter.BaseURL)
	cfg.Storage.SQLite.Path = substituteEnvVars(cfg.Storage.SQLite.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every duration parses and the storage type is known.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"converter.timeout":     c.Converter.Timeout,
		"pipeline.step_timeout": c.Pipeline.StepTimeout,
		"pipeline.run_timeout":  c.Pipeline.RunTimeout,
		"expiry.interval":       c.Expiry.Interval,
		"expiry.retention":      c.Expiry.Retention,
	} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", name, v)
		}
	}

	switch c.Storage.Type {
	case "", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid storage.type %q (must be 'sqlite' or 'memory')", c.Storage.Type)
	}

	return nil
}

// Duration parses a validated duration string, falling back to def when empty.
func Duration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
