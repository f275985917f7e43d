// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package web

import (
	"context"
	"net/http"

	"github.com/membergate/membergate/internal/auth"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	tokenKey
)

// SessionFrom returns the session resolved for the request, or
// auth.Anonymous when there is none.
func SessionFrom(ctx context.Context) *auth.Session {
	if s, ok := ctx.Value(sessionKey).(*auth.Session); ok && s != nil {
		return s
	}
	return auth.Anonymous
}

// tokenFrom returns the raw cookie token the session was resolved from.
func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// withSession resolves the session cookie and stores the session in the
// request context. A cookie that no longer maps to a live session is
// cleared.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(h.cookie.Name); err == nil {
			token = c.Value
		}

		session, err := h.auth.Sessions().Resolve(r.Context(), token)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if token != "" && !h.auth.Sessions().Active(session) {
			h.clearCookie(w)
			token = ""
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

func (h *Handler) setCookie(w http.ResponseWriter, session *auth.Session, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(h.auth.Sessions().TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
