// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

//go:build tools
// +build tools

// Package main pins the test frameworks used by the repository and
// integration suites to go.mod.
// See https://go.dev/wiki/Modules#how-can-i-track-tool-dependencies-for-a-module
package main

import (
	// Testing frameworks
	_ "github.com/onsi/ginkgo/v2"
	_ "github.com/onsi/gomega"
	_ "github.com/stretchr/testify/assert"
	_ "github.com/stretchr/testify/mock"
	_ "github.com/stretchr/testify/require"
)
