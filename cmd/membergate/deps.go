// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package main

import (
	"context"
	"net"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/membergate/membergate/internal/observability"
	"github.com/membergate/membergate/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// StoreOpener connects to PostgreSQL.
	// Default: store.Open
	StoreOpener func(ctx context.Context, dsn string, opts store.Options) (Database, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(dsn string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, registrations ...observability.Registration) ObservabilityServer

	// Listen opens the public HTTP listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.StoreOpener == nil {
		out.StoreOpener = func(ctx context.Context, dsn string, opts store.Options) (Database, error) {
			return store.Open(ctx, dsn, opts)
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(dsn string) (Migrator, error) {
			return store.NewMigrator(dsn)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, registrations ...observability.Registration) ObservabilityServer {
			return observability.NewServer(addr, ready, registrations...)
		}
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	return &out
}

// Database wraps the methods used from store.DB.
type Database interface {
	Pool() *pgxpool.Pool
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Pending() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
