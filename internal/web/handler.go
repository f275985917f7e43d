// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

// Package web serves the membergate HTTP surface: registration, login,
// the members area and the admin panel, all backed by auth.Service.
package web

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/pkg/errutil"
)

// DefaultCookieName names the session cookie unless configured otherwise.
const DefaultCookieName = "membergate_session"

// Handler holds the HTTP handlers.
type Handler struct {
	auth     *auth.Service
	renderer Renderer
	cookie   CookieConfig
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRenderer replaces the embedded template renderer.
func WithRenderer(r Renderer) Option {
	return func(h *Handler) {
		h.renderer = r
	}
}

// WithCookie configures the session cookie.
func WithCookie(cfg CookieConfig) Option {
	return func(h *Handler) {
		h.cookie = cfg
	}
}

// WithHandlerLogger sets the request and error logger.
func WithHandlerLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a Handler over service.
func NewHandler(service *auth.Service, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, oops.Code("WEB_HANDLER_INVALID").Errorf("auth service is required")
	}

	h := &Handler{
		auth:   service,
		cookie: CookieConfig{Name: DefaultCookieName},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cookie.Name == "" {
		h.cookie.Name = DefaultCookieName
	}
	if h.renderer == nil {
		r, err := NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		h.renderer = r
	}
	return h, nil
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(h.withSession)

	r.Get("/", h.home)
	r.Get("/members", h.members)
	r.Get("/createUser", h.createUser)
	r.Post("/submitUser", h.submitUser)
	r.Get("/login", h.loginForm)
	r.Post("/loggingin", h.loggingIn)
	r.Get("/logout", h.logout)
	r.Get("/admin", h.admin)
	r.Get("/promote", h.promote)
	r.Get("/demote", h.demote)
	r.Get("/nosql-injection", h.lookup)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	return r
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, ViewHome, h.page(r))
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	page := h.page(r)
	if !page.Authenticated {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, ViewMembers, page)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	page := h.page(r)
	q := r.URL.Query()
	switch {
	case q.Has("exists"):
		page.Notice = "exists"
	case q.Has("invalid"):
		page.Notice = "invalid"
	}
	h.render(w, r, http.StatusOK, ViewCreateUser, page)
}

func (h *Handler) submitUser(w http.ResponseWriter, r *http.Request) {
	values, ok := postValues(r)
	if !ok {
		http.Redirect(w, r, "/createUser?invalid=1", http.StatusFound)
		return
	}

	session, token, err := h.auth.Register(r.Context(), values)
	switch auth.Code(err) {
	case "":
	case auth.CodeInvalidInput:
		http.Redirect(w, r, "/createUser?invalid=1", http.StatusFound)
		return
	case auth.CodeAlreadyExists:
		http.Redirect(w, r, "/createUser?exists=1", http.StatusFound)
		return
	default:
		h.serverError(w, r, err)
		return
	}

	h.setCookie(w, session, token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	page := h.page(r)
	if r.URL.Query().Has("failed") {
		page.Notice = "failed"
	}
	h.render(w, r, http.StatusOK, ViewLogin, page)
}

func (h *Handler) loggingIn(w http.ResponseWriter, r *http.Request) {
	values, ok := postValues(r)
	if !ok {
		http.Redirect(w, r, "/login?failed=1", http.StatusFound)
		return
	}

	session, token, err := h.auth.Login(r.Context(), values, tokenFrom(r.Context()))
	switch auth.Code(err) {
	case "":
	case auth.CodeLoginFailed:
		http.Redirect(w, r, "/login?failed=1", http.StatusFound)
		return
	default:
		h.serverError(w, r, err)
		return
	}

	h.setCookie(w, session, token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), tokenFrom(r.Context())); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.clearCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.AdminListing(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		h.denied(w, r, err)
		return
	}
	page := h.page(r)
	page.Users = users
	h.render(w, r, http.StatusOK, ViewAdmin, page)
}

func (h *Handler) promote(w http.ResponseWriter, r *http.Request) {
	h.changePrivilege(w, r, h.auth.Promote)
}

func (h *Handler) demote(w http.ResponseWriter, r *http.Request) {
	h.changePrivilege(w, r, h.auth.Demote)
}

// changePrivilege runs a promote or demote. Success, a malformed email and
// an unknown target all return to the admin listing.
func (h *Handler) changePrivilege(w http.ResponseWriter, r *http.Request,
	change func(context.Context, *auth.Session, url.Values) error,
) {
	err := change(r.Context(), SessionFrom(r.Context()), r.URL.Query())
	switch auth.Code(err) {
	case "", auth.CodeInvalidInput, auth.CodeUserNotFound:
		http.Redirect(w, r, "/admin", http.StatusFound)
	default:
		h.denied(w, r, err)
	}
}

// lookup is the injection diagnostic: it greets a user looked up by name
// and shows the rejection when the value is not a plain string.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	page := h.page(r)
	values := lookupValues(r.URL.Query())
	if len(values) == 0 {
		page.Usage = true
		h.render(w, r, http.StatusOK, ViewInjection, page)
		return
	}

	users, err := h.auth.LookupUser(r.Context(), values)
	switch auth.Code(err) {
	case "":
	case auth.CodeInvalidInput:
		page.Detected = true
		h.render(w, r, http.StatusBadRequest, ViewInjection, page)
		return
	default:
		h.serverError(w, r, err)
		return
	}

	page.Lookup = values.Get("user")
	page.Found = len(users)
	h.render(w, r, http.StatusOK, ViewInjection, page)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, ViewNotFound, h.page(r))
}

// denied maps a gate failure to its response: login redirect, forbidden
// view or the generic error view.
func (h *Handler) denied(w http.ResponseWriter, r *http.Request, err error) {
	switch auth.Code(err) {
	case auth.CodeUnauthorized:
		http.Redirect(w, r, "/login", http.StatusFound)
	case auth.CodeForbidden:
		h.render(w, r, http.StatusForbidden, ViewForbidden, h.page(r))
	default:
		h.serverError(w, r, err)
	}
}

// serverError logs err with its oops context and renders the generic
// error view. No error detail reaches the client.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.LogErrorContext(r.Context(), h.logger, "request failed", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()))

	page := h.page(r)
	page.RequestID = middleware.GetReqID(r.Context())
	h.render(w, r, http.StatusInternalServerError, ViewError, page)
}

// render buffers the view so a template failure can still produce a clean
// 500 response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, view View, page *Page) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, view, page); err != nil {
		errutil.LogErrorContext(r.Context(), h.logger, "render failed", err, "view", string(view))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	w.Write(buf.Bytes())
}

func (h *Handler) page(r *http.Request) *Page {
	session := SessionFrom(r.Context())
	return &Page{
		Session:       session,
		Authenticated: h.auth.Sessions().Active(session),
	}
}

// postValues parses a form body. Only body values are used; query
// parameters on a POST are ignored.
func postValues(r *http.Request) (url.Values, bool) {
	if err := r.ParseForm(); err != nil {
		return nil, false
	}
	return r.PostForm, true
}

// lookupValues keeps the user key and its bracketed forms, such as
// user[$ne], and drops everything else in the query.
func lookupValues(q url.Values) url.Values {
	out := url.Values{}
	for key, vals := range q {
		if key == "user" || strings.HasPrefix(key, "user[") {
			out[key] = vals
		}
	}
	return out
}
