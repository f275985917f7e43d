// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour // fixed at creation
)

// Identity is the account data a session carries.
type Identity struct {
	Username  string
	Email     string
	Privilege Privilege
}

// Session is the server-side state tied to a client token.
//
// Privilege is copied at login and is for display only. Authorization
// re-reads the user from the store.
type Session struct {
	ID            ulid.ULID
	TokenHash     string
	Authenticated bool
	Username      string
	Email         string
	Privilege     Privilege
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Anonymous is the session of a client without a valid token.
// It is shared and must not be modified.
var Anonymous = &Session{}

// NewSession creates an authenticated Session expiring ttl after now.
func NewSession(identity Identity, tokenHash string, now time.Time, ttl time.Duration) (*Session, error) {
	if identity.Username == "" {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("username cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").With("ttl", ttl.String()).Errorf("ttl must be positive")
	}

	now = now.UTC()
	return &Session{
		ID:            ulid.Make(),
		TokenHash:     tokenHash,
		Authenticated: true,
		Username:      identity.Username,
		Email:         identity.Email,
		Privilege:     identity.Privilege,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}, nil
}

// IsAuthenticated reports whether the session belongs to a logged-in,
// unexpired user.
func (s *Session) IsAuthenticated() bool {
	return s.IsAuthenticatedAt(time.Now())
}

// IsAuthenticatedAt is IsAuthenticated evaluated at t.
func (s *Session) IsAuthenticatedAt(t time.Time) bool {
	return s != nil && s.Authenticated && !s.IsExpiredAt(t)
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.After(t)
}

// IsAdmin reports the privilege cached at login. Use Service.Authorize for
// access decisions.
func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.Privilege == PrivilegeAdmin
}

// GenerateSessionToken creates a secure random token and its hash.
// The plaintext token is sent to the client; the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns an error wrapping ErrNotFound if there is none.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Delete removes a session by ID. Deleting a missing session succeeds.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes every session whose expiry is not after now and
	// returns the count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
