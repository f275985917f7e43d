// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/auth/memstore"
	"github.com/membergate/membergate/internal/auth/postgres"
	"github.com/membergate/membergate/internal/config"
	"github.com/membergate/membergate/internal/observability"
	"github.com/membergate/membergate/internal/store"
)

// readinessTimeout bounds one readiness ping.
const readinessTimeout = 2 * time.Second

// backend is the credential store selected by storage.driver.
type backend struct {
	users    auth.UserRepository
	sessions auth.SessionRepository
	ready    observability.ReadinessChecker
	close    func()
}

// openBackend builds the configured store. For postgres it connects with
// retry, then applies pending migrations unless skipMigrate is set.
func openBackend(ctx context.Context, cfg config.Config, skipMigrate bool, deps *Deps, logger *slog.Logger) (*backend, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		logger.WarnContext(ctx, "using in-memory store; data is lost on exit")
		return &backend{
			users:    memstore.NewUserRepository(),
			sessions: memstore.NewSessionRepository(),
			close:    func() {},
		}, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := deps.StoreOpener(ctx, dsn, store.Options{
		ConnectTimeout: cfg.Database.ConnectTimeout,
		MaxRetries:     store.DefaultOptions().MaxRetries,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	if !skipMigrate {
		if err := runMigrations(ctx, dsn, deps, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	pool := db.Pool()
	return &backend{
		users:    postgres.NewUserRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		ready:    observability.PingChecker(db, readinessTimeout),
		close:    db.Close,
	}, nil
}

func runMigrations(ctx context.Context, dsn string, deps *Deps, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(dsn)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.WarnContext(ctx, "failed to close migrator", "error", closeErr)
		}
	}()

	pending, err := migrator.Pending()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "list pending migrations").Wrap(err)
	}
	if len(pending) == 0 {
		logger.InfoContext(ctx, "database schema is current")
		return nil
	}

	logger.InfoContext(ctx, "applying migrations", "count", len(pending))
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}
