// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
)

// UserRepository keeps user documents in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users []*auth.User
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

// FindByField returns copies of every user whose field equals value.
func (r *UserRepository) FindByField(_ context.Context, field auth.Field, value string) ([]*auth.User, error) {
	if err := auth.CheckField(field); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*auth.User
	for _, u := range r.users {
		if fieldValue(u, field) == value {
			out = append(out, clone(u))
		}
	}
	return out, nil
}

// FindByEitherOf returns copies of every user matching either pair.
func (r *UserRepository) FindByEitherOf(_ context.Context, field1 auth.Field, value1 string, field2 auth.Field, value2 string) ([]*auth.User, error) {
	if err := auth.CheckField(field1); err != nil {
		return nil, err
	}
	if err := auth.CheckField(field2); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*auth.User
	for _, u := range r.users {
		if fieldValue(u, field1) == value1 || fieldValue(u, field2) == value2 {
			out = append(out, clone(u))
		}
	}
	return out, nil
}

// Insert stores a copy of user. Username and email must both be unused.
func (r *UserRepository) Insert(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return oops.Code("USER_INSERT_FAILED").
				With("username", user.Username).
				Wrap(auth.ErrDuplicateKey)
		}
	}
	r.users = append(r.users, clone(user))
	return nil
}

// UpdateField sets field on the user matched by matchField.
func (r *UserRepository) UpdateField(_ context.Context, matchField auth.Field, matchValue string, field auth.Field, value string) error {
	if err := auth.CheckField(matchField); err != nil {
		return err
	}
	if !field.Mutable() {
		return oops.Code("STORE_UNKNOWN_FIELD").With("field", string(field)).Errorf("field %q cannot be updated", field)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var target *auth.User
	for _, u := range r.users {
		if fieldValue(u, matchField) == matchValue {
			target = u
			break
		}
	}
	if target == nil {
		return oops.Code("USER_NOT_FOUND").
			With(string(matchField), matchValue).
			Wrap(auth.ErrNotFound)
	}

	if field == auth.FieldEmail && value != target.Email {
		for _, u := range r.users {
			if u != target && u.Email == value {
				return oops.Code("USER_UPDATE_FAILED").Wrap(auth.ErrDuplicateKey)
			}
		}
	}

	switch field {
	case auth.FieldEmail:
		target.Email = value
	case auth.FieldPassword:
		target.PasswordHash = value
	case auth.FieldPrivilege:
		target.Privilege = auth.Privilege(value)
	}
	target.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns copies of every user ordered by username.
func (r *UserRepository) List(_ context.Context) ([]*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*auth.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func fieldValue(u *auth.User, field auth.Field) string {
	switch field {
	case auth.FieldUsername:
		return u.Username
	case auth.FieldEmail:
		return u.Email
	case auth.FieldPassword:
		return u.PasswordHash
	case auth.FieldPrivilege:
		return string(u.Privilege)
	}
	return ""
}

func clone(u *auth.User) *auth.User {
	c := *u
	return &c
}
