// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with a double underscore: MEMBERGATE_SESSION__COOKIE_NAME sets
// session.cookie_name.
const EnvPrefix = "MEMBERGATE_"

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"metrics-addr":  "metrics.addr",
	"log-format":    "log.format",
	"storage":       "storage.driver",
	"database-url":  "database.url",
	"secure-cookie": "session.secure_cookie",
	"session-ttl":   "session.ttl",
	"hasher":        "auth.hasher",
}

// RegisterFlags adds the overridable settings to fs. Flag defaults match
// Default but only flags set explicitly take part in Load.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("addr", def.Server.Addr, "HTTP listen address")
	fs.String("metrics-addr", def.Metrics.Addr, "observability listen address (empty disables)")
	fs.String("log-format", def.Log.Format, "log format (json or text)")
	fs.String("storage", def.Storage.Driver, "credential store (postgres or memory)")
	fs.String("database-url", def.Database.URL, "PostgreSQL connection URL")
	fs.Bool("secure-cookie", def.Session.SecureCookie, "mark the session cookie Secure")
	fs.Duration("session-ttl", def.Session.TTL, "session lifetime")
	fs.String("hasher", def.Auth.Hasher, "password hasher (bcrypt or argon2id)")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), MEMBERGATE_ environment variables and the flags in fs
// that were set explicitly. fs may be nil. The result is validated.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey turns MEMBERGATE_SESSION__COOKIE_NAME into session.cookie_name.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
