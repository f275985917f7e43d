// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package web

import (
	"embed"
	"html/template"
	"io"

	"github.com/samber/oops"

	"github.com/membergate/membergate/internal/auth"
)

// View names a page the Renderer can produce.
type View string

// Views.
const (
	ViewHome       View = "home"
	ViewMembers    View = "members"
	ViewCreateUser View = "create_user"
	ViewLogin      View = "login"
	ViewAdmin      View = "admin"
	ViewForbidden  View = "forbidden"
	ViewNotFound   View = "not_found"
	ViewInjection  View = "injection"
	ViewError      View = "error"
)

// Views lists every view a Renderer must support.
var Views = []View{
	ViewHome, ViewMembers, ViewCreateUser, ViewLogin, ViewAdmin,
	ViewForbidden, ViewNotFound, ViewInjection, ViewError,
}

// Page is the data context passed to every view.
type Page struct {
	Session       *auth.Session
	Authenticated bool
	// Notice selects a form message: "exists", "invalid" or "failed".
	Notice string
	Users  []auth.UserView
	// Lookup fields drive the injection diagnostic view.
	Lookup   string
	Found    int
	Usage    bool
	Detected bool
	// RequestID is shown on the error view for support.
	RequestID string
}

// Renderer writes markup for a view. It is an external collaborator: the
// handler never builds markup itself.
type Renderer interface {
	Render(w io.Writer, view View, data any) error
}

//go:embed templates/*.html
var templateFS embed.FS

// TemplateRenderer renders the embedded html/template views. Each view is
// parsed together with the shared layout.
type TemplateRenderer struct {
	views map[View]*template.Template
}

// NewTemplateRenderer parses every view.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	views := make(map[View]*template.Template, len(Views))
	for _, v := range Views {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(v)+".html")
		if err != nil {
			return nil, oops.Code("WEB_TEMPLATE_INVALID").With("view", string(v)).Wrap(err)
		}
		views[v] = t
	}
	return &TemplateRenderer{views: views}, nil
}

// Render executes the layout with view's content block.
func (r *TemplateRenderer) Render(w io.Writer, view View, data any) error {
	t, ok := r.views[view]
	if !ok {
		return oops.Code("WEB_UNKNOWN_VIEW").With("view", string(view)).Errorf("unknown view")
	}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return oops.Code("WEB_RENDER_FAILED").With("view", string(view)).Wrap(err)
	}
	return nil
}

var _ Renderer = (*TemplateRenderer)(nil)
