// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

// Package validate checks untrusted request fields against JSON Schemas
// reflected from form structs.
//
// Request values are first decoded into a generic document using bracket
// syntax, so "user[$ne]=x" arrives as a nested object rather than a string.
// Every form field is declared as a bounded string, which means operator
// documents, arrays and missing fields all fail validation before a typed
// value exists for the caller to pass to a store.
package validate
