// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

// Package config loads membergate configuration from defaults, a YAML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"net"
	"net/url"
	"time"

	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Defaults.
const (
	DefaultServerAddr     = ":3000"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultCookieName     = "membergate_session"
	DefaultConnectTimeout = 30 * time.Second
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Storage  StorageConfig  `koanf:"storage"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Auth     AuthConfig     `koanf:"auth"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Redact bool   `koanf:"redact"`
}

// StorageConfig selects the credential store backend.
type StorageConfig struct {
	Driver string `koanf:"driver"`
}

// DatabaseConfig locates the PostgreSQL server. URL wins over the
// individual fields when set.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	Host           string        `koanf:"host"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// SessionConfig configures session lifetime and the session cookie.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	CookieName    string        `koanf:"cookie_name"`
	SecureCookie  bool          `koanf:"secure_cookie"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// AuthConfig selects the password hashing algorithm.
type AuthConfig struct {
	Hasher     string `koanf:"hasher"`
	BcryptCost int    `koanf:"bcrypt_cost"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: DefaultServerAddr},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
		Log:     LogConfig{Format: FormatJSON, Redact: true},
		Storage: StorageConfig{Driver: DriverPostgres},
		Database: DatabaseConfig{
			ConnectTimeout: DefaultConnectTimeout,
		},
		Session: SessionConfig{
			TTL:           auth.DefaultSessionTTL,
			CookieName:    DefaultCookieName,
			SweepInterval: auth.DefaultSweepInterval,
		},
		Auth: AuthConfig{
			Hasher:     auth.HasherBcrypt,
			BcryptCost: auth.DefaultBcryptCost,
		},
	}
}

// Validate checks enums and durations. It does not require database
// settings; DSN reports those when the postgres driver needs them.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "server.addr").Errorf("server address is required")
	}
	switch c.Log.Format {
	case FormatJSON, FormatText:
	default:
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("invalid log format %q: must be 'json' or 'text'", c.Log.Format)
	}
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return oops.Code("CONFIG_INVALID").With("key", "storage.driver").
			Errorf("invalid storage driver %q: must be 'postgres' or 'memory'", c.Storage.Driver)
	}
	switch c.Auth.Hasher {
	case auth.HasherBcrypt, auth.HasherArgon2id:
	default:
		return oops.Code("CONFIG_INVALID").With("key", "auth.hasher").
			Errorf("invalid hasher %q: must be 'bcrypt' or 'argon2id'", c.Auth.Hasher)
	}
	if c.Session.CookieName == "" {
		return oops.Code("CONFIG_INVALID").With("key", "session.cookie_name").Errorf("cookie name is required")
	}
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"session.ttl", c.Session.TTL},
		{"session.sweep_interval", c.Session.SweepInterval},
		{"database.connect_timeout", c.Database.ConnectTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return oops.Code("CONFIG_INVALID").With("key", d.key).
				Errorf("%s must be positive, got %s", d.key, d.value)
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string, composing one from the
// individual database fields when no URL is configured.
func (c *Config) DSN() (string, error) {
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return "", oops.Code("CONFIG_INVALID").With("key", "database").
			Errorf("database.url or database.host and database.name are required")
	}

	host := c.Database.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "5432")
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   host,
		Path:   "/" + c.Database.Name,
	}
	switch {
	case c.Database.User != "" && c.Database.Password != "":
		u.User = url.UserPassword(c.Database.User, c.Database.Password)
	case c.Database.User != "":
		u.User = url.User(c.Database.User)
	}
	return u.String(), nil
}
