// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

// Package memstore provides in-memory auth repositories for development and
// tests. Data does not survive a restart.
package memstore
