// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Options tunes Open.
type Options struct {
	// ConnectTimeout bounds the whole initial connect, retries included.
	ConnectTimeout time.Duration
	// MaxRetries is the number of extra attempts after the first.
	MaxRetries uint64
	Logger     *slog.Logger
}

// DefaultOptions returns the options used when fields are left zero.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 30 * time.Second,
		MaxRetries:     5,
		Logger:         slog.Default(),
	}
}

// DB is the process-wide store handle. main creates it, repositories borrow
// its pool, and Close releases it on shutdown.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, retrying with exponential backoff until the database
// answers a ping or opts.ConnectTimeout expires.
func Open(ctx context.Context, dsn string, opts Options) (*DB, error) {
	defaults := DefaultOptions()
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaults.ConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("STORE_INVALID_DSN").With("operation", "parse database url").Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	var pool *pgxpool.Pool
	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewExponential(250*time.Millisecond))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			opts.Logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("STORE_UNAVAILABLE").
			With("operation", "connect").
			With("attempts", attempt).
			Wrap(err)
	}

	opts.Logger.InfoContext(ctx, "connected to database",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database)
	return &DB{pool: pool}, nil
}

// Pool returns the connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks that the database answers.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return oops.Code("STORE_UNAVAILABLE").With("operation", "ping").Wrap(err)
	}
	return nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.pool.Close()
}
