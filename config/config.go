// Package config loads runtime configuration from TOML files.
//
// Every section has working defaults, so a missing file or an empty
// document yields a fully usable configuration. ${VAR} references in the
// file are expanded from the environment before parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full runtime configuration.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Bus      BusConfig      `toml:"bus"`
	Registry RegistryConfig `toml:"registry"`
	Realtime RealtimeConfig `toml:"realtime"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// BusConfig controls the in-process event bus.
type BusConfig struct {
	HistorySize int `toml:"history_size"`
}

// RegistryConfig controls agent metadata storage.
type RegistryConfig struct {
	FilePath     string `toml:"file_path"`
	EnableSearch bool   `toml:"enable_search"`
	StrictMode   bool   `toml:"strict_mode"`
}

// RealtimeConfig controls the WebSocket broadcaster.
type RealtimeConfig struct {
	Addr                string `toml:"addr"`
	PingIntervalSeconds int    `toml:"ping_interval_seconds"`
}

// PingInterval returns the configured keepalive interval as a duration.
func (c RealtimeConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Bus:     BusConfig{HistorySize: 100},
		Registry: RegistryConfig{
			EnableSearch: true,
		},
		Realtime: RealtimeConfig{
			Addr:                ":8080",
			PingIntervalSeconds: 30,
		},
	}
}

// Load reads configuration from path, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if _, err := toml.Decode(expandEnvVars(string(data)), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks field values without touching the filesystem.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if c.Bus.HistorySize <= 0 {
		return fmt.Errorf("bus.history_size must be positive, got %d", c.Bus.HistorySize)
	}
	if c.Realtime.PingIntervalSeconds < 0 {
		return fmt.Errorf("realtime.ping_interval_seconds must not be negative, got %d", c.Realtime.PingIntervalSeconds)
	}
	if c.Realtime.Addr == "" {
		return fmt.Errorf("realtime.addr is required")
	}
	return nil
}
