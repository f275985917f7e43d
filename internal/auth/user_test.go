// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates standard user", func(t *testing.T) {
		user, err := auth.NewUser("alice", "alice@example.com", "$2a$hash")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, auth.PrivilegeStandard, user.Privilege)
		assert.False(t, user.IsAdmin())
		assert.False(t, user.CreatedAt.IsZero())
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	tests := []struct {
		name     string
		username string
		email    string
		hash     string
		code     string
	}{
		{"empty username", "", "a@example.com", "h", "USER_INVALID_USERNAME"},
		{"empty email", "alice", "", "h", "USER_INVALID_EMAIL"},
		{"empty hash", "alice", "a@example.com", "", "USER_INVALID_PASSWORD_HASH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewUser(tt.username, tt.email, tt.hash)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestUser_View(t *testing.T) {
	user := &auth.User{Username: "bob", Email: "bob@example.com", PasswordHash: "secret-hash", Privilege: auth.PrivilegeAdmin}
	view := user.View()
	assert.Equal(t, auth.UserView{Username: "bob", Email: "bob@example.com", Privilege: auth.PrivilegeAdmin}, view)
	assert.NotContains(t, []string{view.Username, view.Email, string(view.Privilege)}, "secret-hash")
}

func TestField(t *testing.T) {
	assert.True(t, auth.FieldEmail.Valid())
	assert.True(t, auth.FieldPrivilege.Mutable())
	assert.False(t, auth.FieldUsername.Mutable())
	assert.False(t, auth.Field("$where").Valid())
	errutil.AssertErrorCode(t, auth.CheckField("$where"), "STORE_UNKNOWN_FIELD")
	assert.NoError(t, auth.CheckField(auth.FieldUsername))
}

func TestParsePrivilege(t *testing.T) {
	p, err := auth.ParsePrivilege("admin")
	require.NoError(t, err)
	assert.Equal(t, auth.PrivilegeAdmin, p)

	_, err = auth.ParsePrivilege("root")
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_PRIVILEGE")
}
