// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
)

// SessionRepository keeps sessions in memory, indexed by token hash.
type SessionRepository struct {
	mu       sync.RWMutex
	byHash   map[string]*auth.Session
	hashByID map[ulid.ULID]string
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byHash:   make(map[string]*auth.Session),
		hashByID: make(map[ulid.ULID]string),
	}
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)

// Create stores a copy of session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[session.TokenHash]; ok {
		return oops.Code("SESSION_CREATE_FAILED").Wrap(auth.ErrDuplicateKey)
	}
	c := *session
	r.byHash[session.TokenHash] = &c
	r.hashByID[session.ID] = session.TokenHash
	return nil
}

// GetByTokenHash returns a copy of the session with tokenHash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	c := *s
	return &c, nil
}

// Delete removes the session with id.
func (r *SessionRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hash, ok := r.hashByID[id]; ok {
		delete(r.byHash, hash)
		delete(r.hashByID, id)
	}
	return nil
}

// DeleteExpired removes every session expired as of now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, s := range r.byHash {
		if s.IsExpiredAt(now) {
			delete(r.byHash, hash)
			delete(r.hashByID, s.ID)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHash)
}
