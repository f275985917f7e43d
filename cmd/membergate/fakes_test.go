// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDatabase struct {
	pingErr error
	closed  bool
}

func (d *fakeDatabase) Pool() *pgxpool.Pool        { return nil }
func (d *fakeDatabase) Ping(context.Context) error { return d.pingErr }
func (d *fakeDatabase) Close()                     { d.closed = true }

type fakeMigrator struct {
	version  uint
	dirty    bool
	pending  []uint
	upErr    error
	upCalls  int
	downs    int
	closed   bool
	closeErr error
}

func (m *fakeMigrator) Up() error {
	m.upCalls++
	return m.upErr
}

func (m *fakeMigrator) Down() error {
	m.downs++
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }
func (m *fakeMigrator) Pending() ([]uint, error)     { return m.pending, nil }

func (m *fakeMigrator) Close() error {
	m.closed = true
	return m.closeErr
}

var errConnectionRefused = errors.New("connection refused")
