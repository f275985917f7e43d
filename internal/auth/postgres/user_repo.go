// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
)

// userDoc is the jsonb document stored per user.
type userDoc struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Privilege string    `json:"privilege"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// fieldKeys maps each user field to its document key. Query text is only
// ever built from these literals; values always travel as parameters.
var fieldKeys = map[auth.Field]string{
	auth.FieldUsername:  "username",
	auth.FieldEmail:     "email",
	auth.FieldPassword:  "password",
	auth.FieldPrivilege: "privilege",
}

func fieldKey(field auth.Field) (string, error) {
	key, ok := fieldKeys[field]
	if !ok {
		return "", auth.CheckField(field)
	}
	return key, nil
}

// UserRepository implements auth.UserRepository over a jsonb document table.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByField returns every user whose field equals value.
func (r *UserRepository) FindByField(ctx context.Context, field auth.Field, value string) ([]*auth.User, error) {
	key, err := fieldKey(field)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, doc FROM users WHERE doc->>'%s' = $1 ORDER BY doc->>'username'`, key)
	return r.queryUsers(ctx, "find users by "+key, query, value)
}

// FindByEitherOf returns every user matching field1=value1 OR field2=value2.
func (r *UserRepository) FindByEitherOf(ctx context.Context, field1 auth.Field, value1 string, field2 auth.Field, value2 string) ([]*auth.User, error) {
	key1, err := fieldKey(field1)
	if err != nil {
		return nil, err
	}
	key2, err := fieldKey(field2)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT id, doc FROM users WHERE doc->>'%s' = $1 OR doc->>'%s' = $2 ORDER BY doc->>'username'`,
		key1, key2)
	return r.queryUsers(ctx, "find users by "+key1+" or "+key2, query, value1, value2)
}

// Insert stores a new user document.
func (r *UserRepository) Insert(ctx context.Context, user *auth.User) error {
	doc, err := json.Marshal(userDoc{
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.PasswordHash,
		Privilege: string(user.Privilege),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return oops.Code("USER_INSERT_FAILED").With("operation", "marshal user document").Wrap(err)
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO users (id, doc) VALUES ($1, $2)`, user.ID.String(), doc)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return oops.Code("USER_INSERT_FAILED").
				With("username", user.Username).
				With("constraint", constraint).
				Wrap(auth.ErrDuplicateKey)
		}
		return auth.StoreUnavailable(err, "insert user")
	}
	return nil
}

// UpdateField sets one document field and bumps updated_at.
func (r *UserRepository) UpdateField(ctx context.Context, matchField auth.Field, matchValue string, field auth.Field, value string) error {
	matchKey, err := fieldKey(matchField)
	if err != nil {
		return err
	}
	if !field.Mutable() {
		return oops.Code("STORE_UNKNOWN_FIELD").With("field", string(field)).Errorf("field %q cannot be updated", field)
	}
	key := fieldKeys[field]

	query := fmt.Sprintf(
		`UPDATE users SET doc = jsonb_set(jsonb_set(doc, '{%s}', to_jsonb($2::text)), '{updated_at}', to_jsonb($3::text)) WHERE doc->>'%s' = $1`,
		key, matchKey)
	result, err := r.pool.Exec(ctx, query, matchValue, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return oops.Code("USER_UPDATE_FAILED").
				With("field", key).
				With("constraint", constraint).
				Wrap(auth.ErrDuplicateKey)
		}
		return auth.StoreUnavailable(err, "update user "+key)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("match_field", matchKey).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns every user ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	return r.queryUsers(ctx, "list users", `SELECT id, doc FROM users ORDER BY doc->>'username'`)
}

func (r *UserRepository) queryUsers(ctx context.Context, operation, query string, args ...any) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, auth.StoreUnavailable(err, operation)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		var (
			idStr string
			raw   []byte
		)
		if err := rows.Scan(&idStr, &raw); err != nil {
			return nil, auth.StoreUnavailable(err, "scan user row")
		}
		user, err := buildUser(idStr, raw)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, auth.StoreUnavailable(err, "iterate user rows")
	}
	return users, nil
}

// buildUser constructs a User from a stored row.
func buildUser(idStr string, raw []byte) (*auth.User, error) {
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	var doc userDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, oops.Code("USER_INVALID_DOCUMENT").
			With("id", idStr).
			Wrap(err)
	}

	privilege, err := auth.ParsePrivilege(doc.Privilege)
	if err != nil {
		return nil, oops.Code("USER_INVALID_DOCUMENT").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:           id,
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.Password,
		Privilege:    privilege,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

// uniqueViolation reports whether err is a unique constraint violation and
// names the constraint.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
