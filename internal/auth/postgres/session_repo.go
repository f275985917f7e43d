// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, token_hash, authenticated, username, email, privilege, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID.String(),
		session.TokenHash,
		session.Authenticated,
		session.Username,
		session.Email,
		string(session.Privilege),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return oops.Code("SESSION_CREATE_FAILED").Wrap(auth.ErrDuplicateKey)
		}
		return auth.StoreUnavailable(err, "insert session")
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, token_hash, authenticated, username, email, privilege, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	var (
		idStr     string
		session   auth.Session
		privilege string
	)
	err := row.Scan(&idStr, &session.TokenHash, &session.Authenticated, &session.Username,
		&session.Email, &privilege, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StoreUnavailable(err, "get session by token hash")
	}

	session.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}
	session.Privilege = auth.Privilege(privilege)
	return &session, nil
}

// Delete removes a session by ID. A missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id.String())
	if err != nil {
		return auth.StoreUnavailable(err, "delete session")
	}
	return nil
}

// DeleteExpired removes every session whose expiry is not after now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, auth.StoreUnavailable(err, "delete expired sessions")
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
