// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/auth/memstore"
)

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewSessionRepository()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	live, err := auth.NewSession(auth.Identity{Username: "alice"}, "live", now, time.Hour)
	require.NoError(t, err)
	old, err := auth.NewSession(auth.Identity{Username: "bob"}, "old", now.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, old))

	got, err := repo.GetByTokenHash(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	_, err = repo.GetByTokenHash(ctx, "missing")
	assert.True(t, errors.Is(err, auth.ErrNotFound))

	assert.True(t, errors.Is(repo.Create(ctx, live), auth.ErrDuplicateKey))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, live.ID))
	require.NoError(t, repo.Delete(ctx, live.ID))
	assert.Equal(t, 0, repo.Len())
}
