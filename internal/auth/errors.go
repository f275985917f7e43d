// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/validate"
	"github.com/membergate/membergate/pkg/errutil"
)

// Sentinels crossing the repository boundary.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert or update would break a
	// uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Error codes surfaced by Service.
const (
	CodeInvalidInput     = validate.CodeInvalid
	CodeAlreadyExists    = "AUTH_ALREADY_EXISTS"
	CodeLoginFailed      = "AUTH_LOGIN_FAILED"
	CodeUnauthorized     = "AUTH_UNAUTHORIZED"
	CodeForbidden        = "AUTH_FORBIDDEN"
	CodeUserNotFound     = "AUTH_USER_NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Code returns the oops code of err, or "" if it has none.
func Code(err error) string {
	return errutil.Code(err)
}

// StoreUnavailable wraps a connectivity or query failure from a backing
// store. Repository implementations use it for every error that is not
// ErrNotFound or ErrDuplicateKey.
func StoreUnavailable(err error, operation string) error {
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		Wrap(err)
}
