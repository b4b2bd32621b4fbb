// Package config loads datatool settings from an optional config file,
// DATATOOL_* environment variables and command-line flags.
//
// Precedence, highest first: flags that were set explicitly, environment,
// config file, defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable,
// e.g. DATATOOL_DATA_PATH for data.path.
const EnvPrefix = "DATATOOL"

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Query     QueryConfig     `mapstructure:"query"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DataConfig selects the data source.
type DataConfig struct {
	Path  string `mapstructure:"path"`
	Table string `mapstructure:"table"` // SQLite sources only
}

// QueryConfig tunes query semantics.
type QueryConfig struct {
	InclusiveAfterBefore bool   `mapstructure:"inclusive_after_before"`
	Rules                string `mapstructure:"rules"` // CUE rule file or directory
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// RateLimitConfig configures per-client request limiting.
// RPM 0 disables limiting.
type RateLimitConfig struct {
	RPM   int `mapstructure:"rpm"`
	Burst int `mapstructure:"burst"`
}

// defaults is also the list of known keys: AutomaticEnv only resolves keys
// viper already knows about, so every key needs a default here.
var defaults = map[string]any{
	"server.addr":                  ":8000",
	"server.shutdown_timeout":      10 * time.Second,
	"data.path":                    "data.csv",
	"data.table":                   "",
	"query.inclusive_after_before": false,
	"query.rules":                  "",
	"log.level":                    "info",
	"log.format":                   "text",
	"ratelimit.rpm":                0,
	"ratelimit.burst":              10,
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. It must exist when set. When empty,
	// datatool.{yaml,yml,json,toml} in the working directory is used if
	// present.
	File string

	// Flags maps config keys to command-line flags. A flag only overrides
	// the other sources when it was set on the command line.
	Flags map[string]*pflag.Flag
}

// Load resolves the configuration.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("datatool")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the types alone cannot express.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	if c.RateLimit.RPM < 0 {
		return fmt.Errorf("ratelimit.rpm must not be negative")
	}
	if c.RateLimit.RPM > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.burst must be positive when ratelimit.rpm is set")
	}
	return nil
}

// SlogLevel converts the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q: must be debug, info, warn or error", l.Level)
	}
}
