// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

// Package auth provides identity, session and privilege handling for
// Membergate.
//
// # Domain Types
//
// Domain types should be created with their constructors:
//   - NewUser - creates a User with standard privilege and a fresh ID
//   - NewSession - creates an authenticated Session with a fixed expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Services
//
//   - SessionManager - establishes, resolves and terminates sessions
//   - SessionSweeper - evicts expired session records in the background
//   - Service - registration, login, logout and privilege-gated operations
//
// Every privilege check reads the user's current privilege from the
// UserRepository. The privilege cached on a Session is for display only.
package auth
