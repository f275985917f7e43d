// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/pkg/errutil"
)

func TestGenerateSessionToken(t *testing.T) {
	t.Run("generates secure token", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, token, hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, hash1, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		token2, hash2, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		assert.NotEqual(t, token1, token2)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("hash is SHA256 hex-encoded", func(t *testing.T) {
		_, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		// SHA256 produces 32 bytes = 64 hex chars
		assert.Len(t, hash, 64)
	})
}

func TestHashSessionToken(t *testing.T) {
	t.Run("produces consistent hash", func(t *testing.T) {
		token := "testtoken123"
		hash1 := auth.HashSessionToken(token)
		hash2 := auth.HashSessionToken(token)
		assert.Equal(t, hash1, hash2)
	})

	t.Run("produces different hashes for different tokens", func(t *testing.T) {
		hash1 := auth.HashSessionToken("token1")
		hash2 := auth.HashSessionToken("token2")
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("hash is SHA256 hex-encoded", func(t *testing.T) {
		hash := auth.HashSessionToken("anytoken")
		assert.Len(t, hash, 64) // SHA256 = 32 bytes = 64 hex chars
	})
}

func TestSession_IsExpiredAt(t *testing.T) {
	baseTime := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	session := &auth.Session{
		ID:            ulid.Make(),
		TokenHash:     "somehash",
		Authenticated: true,
		Username:      "alice",
		CreatedAt:     baseTime,
		ExpiresAt:     baseTime.Add(time.Hour),
	}

	t.Run("not expired before expiry", func(t *testing.T) {
		assert.False(t, session.IsExpiredAt(baseTime.Add(30*time.Minute)))
	})

	t.Run("expired after expiry", func(t *testing.T) {
		assert.True(t, session.IsExpiredAt(baseTime.Add(2*time.Hour)))
	})

	t.Run("expired at the expiry instant", func(t *testing.T) {
		assert.True(t, session.IsExpiredAt(baseTime.Add(time.Hour)))
	})
}

func TestSession_IsAuthenticated(t *testing.T) {
	t.Run("anonymous is not authenticated", func(t *testing.T) {
		assert.False(t, auth.Anonymous.IsAuthenticated())
		assert.False(t, auth.Anonymous.IsAdmin())
	})

	t.Run("nil session is not authenticated", func(t *testing.T) {
		var session *auth.Session
		assert.False(t, session.IsAuthenticated())
	})

	t.Run("live session is authenticated", func(t *testing.T) {
		session, err := auth.NewSession(auth.Identity{Username: "alice"}, "hash", time.Now(), time.Hour)
		require.NoError(t, err)
		assert.True(t, session.IsAuthenticated())
	})

	t.Run("expired session is not authenticated", func(t *testing.T) {
		session, err := auth.NewSession(auth.Identity{Username: "alice"}, "hash", time.Now().Add(-2*time.Hour), time.Hour)
		require.NoError(t, err)
		assert.False(t, session.IsAuthenticated())
	})

	t.Run("admin flag reflects cached privilege", func(t *testing.T) {
		session, err := auth.NewSession(auth.Identity{Username: "root", Privilege: auth.PrivilegeAdmin}, "hash", time.Now(), time.Hour)
		require.NoError(t, err)
		assert.True(t, session.IsAdmin())
	})
}

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	identity := auth.Identity{Username: "alice", Email: "alice@example.com", Privilege: auth.PrivilegeStandard}

	t.Run("creates authenticated session", func(t *testing.T) {
		session, err := auth.NewSession(identity, "abc123", now, 24*time.Hour)
		require.NoError(t, err)
		assert.True(t, session.Authenticated)
		assert.Equal(t, "alice", session.Username)
		assert.Equal(t, "alice@example.com", session.Email)
		assert.Equal(t, auth.PrivilegeStandard, session.Privilege)
		assert.Equal(t, "abc123", session.TokenHash)
		assert.Equal(t, now, session.CreatedAt)
		assert.Equal(t, now.Add(24*time.Hour), session.ExpiresAt)
		assert.NotEqual(t, ulid.ULID{}, session.ID)
	})

	t.Run("rejects empty username", func(t *testing.T) {
		_, err := auth.NewSession(auth.Identity{}, "abc123", now, time.Hour)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_USER")
	})

	t.Run("rejects empty token hash", func(t *testing.T) {
		_, err := auth.NewSession(identity, "", now, time.Hour)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_HASH")
		assert.Contains(t, err.Error(), "token hash cannot be empty")
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		_, err := auth.NewSession(identity, "abc123", now, 0)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_TTL")
	})
}

func TestSessionTokenConstants(t *testing.T) {
	t.Run("token bytes is 32", func(t *testing.T) {
		assert.Equal(t, 32, auth.SessionTokenBytes)
	})

	t.Run("default ttl is 24 hours", func(t *testing.T) {
		assert.Equal(t, 24*time.Hour, auth.DefaultSessionTTL)
	})
}
