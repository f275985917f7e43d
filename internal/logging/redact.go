// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package logging

import (
	"log/slog"
	"strings"
)

// Redacted replaces secret attribute values.
const Redacted = "[REDACTED]"

// secretKeys never appear in logs in any form.
var secretKeys = map[string]bool{
	"password":      true,
	"password_hash": true,
	"token":         true,
	"token_hash":    true,
	"cookie":        true,
}

// Redact is a slog ReplaceAttr hook. Email attributes are masked to their
// first character and domain; secret attributes are replaced outright.
func Redact(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	switch {
	case secretKeys[key]:
		return slog.String(a.Key, Redacted)
	case key == "email" || strings.HasSuffix(key, "_email"):
		return slog.String(a.Key, MaskEmail(a.Value.String()))
	}
	return a
}

// MaskEmail keeps the first character of the local part and the domain:
// "alice@example.com" becomes "a***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return Redacted
	}
	return email[:1] + "***" + email[at:]
}
