// Package config loads cerebrod settings from a JSON file or from
// CEREBRO_-prefixed environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config is the top-level cerebrod configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Analysis AnalysisConfig `json:"analysis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	BufferSize int    `json:"buffer_size"` // in-memory log ring capacity
}

// AnalysisConfig holds simulated log-analysis timing, in milliseconds.
type AnalysisConfig struct {
	DelayMS      int `json:"delay_ms"`
	RerunDelayMS int `json:"rerun_delay_ms"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds a config from environment variables with the CEREBRO_
// prefix, falling back to defaults.
func LoadFromEnv() (*Config, error) {
	cfg := defaults()
	cfg.Server.Host = getenv("CEREBRO_HOST", cfg.Server.Host)
	cfg.Server.Port = getenvInt("CEREBRO_PORT", cfg.Server.Port)
	cfg.Logging.Level = getenv("CEREBRO_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.BufferSize = getenvInt("CEREBRO_LOG_BUFFER_SIZE", cfg.Logging.BufferSize)
	cfg.Analysis.DelayMS = getenvInt("CEREBRO_ANALYSIS_DELAY_MS", cfg.Analysis.DelayMS)
	cfg.Analysis.RerunDelayMS = getenvInt("CEREBRO_ANALYSIS_RERUN_DELAY_MS", cfg.Analysis.RerunDelayMS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Logging:  LoggingConfig{Level: "info", BufferSize: 1000},
		Analysis: AnalysisConfig{DelayMS: 2000, RerunDelayMS: 1500},
	}
}

// Validate checks for invalid fields, collecting all problems before
// reporting.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Logging.BufferSize <= 0 {
		errs = append(errs, "logging.buffer_size must be positive")
	}
	if c.Analysis.DelayMS < 0 {
		errs = append(errs, "analysis.delay_ms must not be negative")
	}
	if c.Analysis.RerunDelayMS < 0 {
		errs = append(errs, "analysis.rerun_delay_ms must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Addr returns the host:port pair the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ParseLevel converts a config level string to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
