// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for auth operation metrics.
const (
	StatusSuccess      = "success"
	StatusInvalid      = "invalid"
	StatusRejected     = "rejected"
	StatusUnauthorized = "unauthorized"
	StatusForbidden    = "forbidden"
	StatusNotFound     = "not_found"
	StatusError        = "error"
)

// AuthOperations counts Service operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "membergate_auth_operations_total",
		Help: "Total number of authentication operations",
	},
	[]string{"operation", "status"},
)

// ValidationRejections counts inputs rejected by the validator, per form.
var ValidationRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "membergate_validation_rejections_total",
		Help: "Total number of request inputs rejected by validation",
	},
	[]string{"form"},
)

// SessionsSwept counts expired sessions removed by the sweeper.
var SessionsSwept = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "membergate_sessions_swept_total",
		Help: "Total number of expired sessions removed",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(ValidationRejections)
	reg.MustRegister(SessionsSwept)
}

// RecordOperation increments the operation counter for the outcome of err.
func RecordOperation(operation string, err error) {
	AuthOperations.WithLabelValues(operation, StatusFor(err)).Inc()
}

// RecordValidationRejection increments the rejection counter for form.
func RecordValidationRejection(form string) {
	ValidationRejections.WithLabelValues(form).Inc()
}

// StatusFor maps an operation error to a metric status label.
func StatusFor(err error) string {
	if err == nil {
		return StatusSuccess
	}
	switch Code(err) {
	case CodeInvalidInput:
		return StatusInvalid
	case CodeAlreadyExists, CodeLoginFailed:
		return StatusRejected
	case CodeUnauthorized:
		return StatusUnauthorized
	case CodeForbidden:
		return StatusForbidden
	case CodeUserNotFound:
		return StatusNotFound
	default:
		return StatusError
	}
}
