// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SessionManager establishes, resolves and terminates sessions.
type SessionManager struct {
	sessions SessionRepository
	ttl      time.Duration
	clock    func() time.Time
	logger   *slog.Logger
}

// SessionManagerOption configures a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		m.clock = clock
	}
}

// WithSessionLogger sets the logger for best-effort cleanup failures.
func WithSessionLogger(logger *slog.Logger) SessionManagerOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// NewSessionManager creates a SessionManager. A zero ttl selects DefaultSessionTTL.
func NewSessionManager(sessions SessionRepository, ttl time.Duration, opts ...SessionManagerOption) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("session repository is required")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	if ttl < 0 {
		return nil, oops.Code("SESSION_MANAGER_INVALID").With("ttl", ttl.String()).Errorf("ttl must be positive")
	}

	m := &SessionManager{
		sessions: sessions,
		ttl:      ttl,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime given to new sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Active reports whether session is authenticated and unexpired by the
// manager's clock.
func (m *SessionManager) Active(session *Session) bool {
	return session.IsAuthenticatedAt(m.clock())
}

// Establish creates an authenticated session for identity.
// Returns the session and the plaintext token for the client.
func (m *SessionManager) Establish(ctx context.Context, identity Identity) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}

	session, err := NewSession(identity, tokenHash, m.clock(), m.ttl)
	if err != nil {
		return nil, "", err
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, "", StoreUnavailable(err, "create session")
	}
	return session, token, nil
}

// Resolve returns the session for token. Empty, unknown and expired tokens
// resolve to Anonymous. Only store failures are errors.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return Anonymous, nil
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous, nil
		}
		return nil, StoreUnavailable(err, "get session by token hash")
	}

	if session.IsExpiredAt(m.clock()) {
		if delErr := m.sessions.Delete(ctx, session.ID); delErr != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session",
				"session_id", session.ID.String(),
				"error", delErr)
		}
		return Anonymous, nil
	}
	return session, nil
}

// Terminate deletes the session behind token. Unknown tokens are a no-op.
func (m *SessionManager) Terminate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return StoreUnavailable(err, "get session by token hash")
	}

	if err := m.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return StoreUnavailable(err, "delete session")
	}
	return nil
}
