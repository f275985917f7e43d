// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package validate

// LookupForm is the single lookup key accepted by the diagnostic user lookup.
type LookupForm struct {
	User string `json:"user" jsonschema:"minLength=1,maxLength=20"`
}

// RegisterForm carries the fields of the create-account form.
type RegisterForm struct {
	Username string `json:"username" jsonschema:"minLength=1,maxLength=20,pattern=^[a-zA-Z0-9]+$"`
	Email    string `json:"email" jsonschema:"minLength=3,maxLength=254,format=email"`
	Password string `json:"password" jsonschema:"minLength=1,maxLength=20"`
}

// LoginForm carries the fields of the login form. Passwords may be longer
// here than at registration so older accounts can still sign in.
type LoginForm struct {
	Email    string `json:"email" jsonschema:"minLength=3,maxLength=254,format=email"`
	Password string `json:"password" jsonschema:"minLength=1,maxLength=30"`
}

// PrivilegeForm names the account a privilege change applies to.
type PrivilegeForm struct {
	Email string `json:"email" jsonschema:"minLength=3,maxLength=254,format=email"`
}
