// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

// Package config loads gateway configuration from an optional YAML file
// merged with command-line flags (flags win).
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/conectasenior/authgate/internal/token"
)

// Defaults.
const (
	DefaultAddr        = ":8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultTokenTTL    = 30 * time.Minute
	DefaultLogFormat   = "json"
)

// Config is the gateway configuration, loaded once at startup. The
// signing key in Auth.TokenSecret is treated as immutable for the
// process lifetime.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string `koanf:"addr"`
	MetricsAddr string `koanf:"metrics_addr"` // empty disables the observability server
}

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	TokenSecret string        `koanf:"token_secret"`
	TokenTTL    time.Duration `koanf:"token_ttl"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Format string `koanf:"format"` // "json" or "text"
}

// Load reads configuration from the YAML file at path (skipped when
// empty) and overlays values bound from flags. Flag names use dots
// matching the koanf keys (e.g. --server.addr).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "merge flags").
				Wrap(err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:        DefaultAddr,
			MetricsAddr: DefaultMetricsAddr,
		},
		Auth: AuthConfig{
			TokenTTL: DefaultTokenTTL,
		},
		Logging: LoggingConfig{
			Format: DefaultLogFormat,
		},
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete enough to serve.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if len(c.Auth.TokenSecret) < token.MinKeyLength {
		return oops.Code("CONFIG_INVALID").
			With("min_bytes", token.MinKeyLength).
			Errorf("auth.token_secret must be at least %d bytes", token.MinKeyLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.token_ttl must be positive")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Logging.Format).
			Errorf("logging.format must be 'json' or 'text'")
	}
	return nil
}
