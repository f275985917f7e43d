// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Privilege is a user's role.
type Privilege string

// Privilege levels.
const (
	PrivilegeStandard Privilege = "standard"
	PrivilegeAdmin    Privilege = "admin"
)

// ParsePrivilege converts a stored privilege value. Unknown values are an error.
func ParsePrivilege(s string) (Privilege, error) {
	switch Privilege(s) {
	case PrivilegeStandard, PrivilegeAdmin:
		return Privilege(s), nil
	default:
		return "", oops.Code("AUTH_INVALID_PRIVILEGE").With("privilege", s).Errorf("unknown privilege %q", s)
	}
}

// Field names a property of a stored user document.
type Field string

// Queryable user fields.
const (
	FieldUsername  Field = "username"
	FieldEmail     Field = "email"
	FieldPassword  Field = "password"
	FieldPrivilege Field = "privilege"
)

// Valid reports whether f is a known user field.
func (f Field) Valid() bool {
	switch f {
	case FieldUsername, FieldEmail, FieldPassword, FieldPrivilege:
		return true
	}
	return false
}

// Mutable reports whether f may be changed after creation. Usernames are
// immutable.
func (f Field) Mutable() bool {
	return f.Valid() && f != FieldUsername
}

// CheckField returns an error unless f is a known field.
func CheckField(f Field) error {
	if !f.Valid() {
		return oops.Code("STORE_UNKNOWN_FIELD").With("field", string(f)).Errorf("unknown user field %q", f)
	}
	return nil
}

// User is a stored account.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	Privilege    Privilege
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a standard-privilege User. passwordHash must already be hashed.
func NewUser(username, email, passwordHash string) (*User, error) {
	if username == "" {
		return nil, oops.Code("USER_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if email == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_PASSWORD_HASH").Errorf("password hash cannot be empty")
	}
	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Privilege:    PrivilegeStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsAdmin reports whether the user holds admin privilege.
func (u *User) IsAdmin() bool {
	return u != nil && u.Privilege == PrivilegeAdmin
}

// Identity returns the part of the user carried on a session.
func (u *User) Identity() Identity {
	return Identity{Username: u.Username, Email: u.Email, Privilege: u.Privilege}
}

// View projects the user for listings. The password hash is not part of it.
func (u *User) View() UserView {
	return UserView{Username: u.Username, Email: u.Email, Privilege: u.Privilege}
}

// UserView is the listing projection of a User.
type UserView struct {
	Username  string
	Email     string
	Privilege Privilege
}

// UserRepository is the credential store adapter over user documents.
//
// Values are plain strings; implementations compare them as literals.
type UserRepository interface {
	// FindByField returns every user whose field equals value.
	FindByField(ctx context.Context, field Field, value string) ([]*User, error)

	// FindByEitherOf returns every user matching field1=value1 OR field2=value2.
	FindByEitherOf(ctx context.Context, field1 Field, value1 string, field2 Field, value2 string) ([]*User, error)

	// Insert stores a new user. Returns an error wrapping ErrDuplicateKey if
	// the username or email is already taken.
	Insert(ctx context.Context, user *User) error

	// UpdateField sets field to value on the user matched by matchField and
	// bumps UpdatedAt. Setting the current value again succeeds. Returns an error wrapping
	// ErrNotFound if nothing matched.
	UpdateField(ctx context.Context, matchField Field, matchValue string, field Field, value string) error

	// List returns every user ordered by username.
	List(ctx context.Context) ([]*User, error)
}
