// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membergate/membergate/pkg/errutil"
)

func testCmd() (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func TestMigrateUp(t *testing.T) {
	t.Run("applies pending", func(t *testing.T) {
		cmd, out := testCmd()
		m := &fakeMigrator{pending: []uint{1, 2}}

		require.NoError(t, migrateUp(cmd, m))
		assert.Equal(t, 1, m.upCalls)
		assert.Contains(t, out.String(), "Applying 2 migration(s)")
	})

	t.Run("nothing pending", func(t *testing.T) {
		cmd, out := testCmd()
		m := &fakeMigrator{}

		require.NoError(t, migrateUp(cmd, m))
		assert.Zero(t, m.upCalls)
		assert.Contains(t, out.String(), "No pending migrations")
	})

	t.Run("failure", func(t *testing.T) {
		cmd, _ := testCmd()
		m := &fakeMigrator{pending: []uint{1}, upErr: errConnectionRefused}

		errutil.AssertErrorCode(t, migrateUp(cmd, m), "MIGRATION_FAILED")
	})
}

func TestMigrateDown(t *testing.T) {
	cmd, out := testCmd()
	m := &fakeMigrator{}

	require.NoError(t, migrateDown(cmd, m))
	assert.Equal(t, 1, m.downs)
	assert.Contains(t, out.String(), "Rollback completed")
}

func TestMigrateVersion(t *testing.T) {
	tests := []struct {
		name string
		m    *fakeMigrator
		want string
	}{
		{"empty database", &fakeMigrator{}, "No migrations applied"},
		{"applied", &fakeMigrator{version: 2}, "Version 2 (000002_sessions)"},
		{"dirty", &fakeMigrator{version: 1, dirty: true}, "Version 1 (000001_users), dirty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, out := testCmd()
			require.NoError(t, migrateVersion(cmd, tt.m))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestWithMigrator_UsesDatabaseURLFlag(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := NewRootCmd()
	migrateCmd, _, err := root.Find([]string{"migrate", "up"})
	require.NoError(t, err)
	require.NoError(t, migrateCmd.ParseFlags([]string{"--database-url", "postgres://flag@db/app"}))

	var gotDSN string
	m := &fakeMigrator{}
	deps := &Deps{MigratorFactory: func(dsn string) (Migrator, error) {
		gotDSN = dsn
		return m, nil
	}}

	called := false
	err = withMigrator(migrateCmd, deps, func(*cobra.Command, Migrator) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "postgres://flag@db/app", gotDSN)
	assert.True(t, m.closed)
}

func TestWithMigrator_RequiresDatabase(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd, _ := testCmd()
	err := withMigrator(cmd, nil, func(*cobra.Command, Migrator) error { return nil })
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
