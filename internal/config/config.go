// Package config loads trackloop's runtime configuration.
//
// Problem definitions (geometry, physics, primaries) live in CUE files and
// are handled by the problem package. This package covers how a problem is
// run: worker threads, logging, the run database and the metrics endpoint.
// Values come from, in increasing precedence, built-in defaults, an
// optional trackloop.yaml, TRACKLOOP_* environment variables and command
// line flags bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// TRACKLOOP_THREADS.
const EnvPrefix = "TRACKLOOP"

// Config is the runtime configuration.
type Config struct {
	// Threads is the worker count for each action (default: 1)
	Threads int `mapstructure:"threads"`
	// LogLevel is one of debug, info, warn, error (default: warn)
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is text or json (default: text)
	LogFormat string `mapstructure:"log_format"`
	// Database is the SQLite run log path; empty disables persistence
	Database string `mapstructure:"database"`
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090"
	MetricsAddr string `mapstructure:"metrics_addr"`
	// Sync accumulates per-action wall time
	Sync bool `mapstructure:"sync"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Threads:   1,
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("threads", defaults.Threads)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("database", defaults.Database)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("sync", defaults.Sync)
}

// NewViper prepares a viper instance with defaults, environment binding
// and, if present, a config file. An explicit configFile must exist;
// otherwise trackloop.yaml is looked up in the working directory and its
// absence is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("trackloop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Logger builds a logger writing to w in the configured format and level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
