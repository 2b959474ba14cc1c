// Package web serves the booking site's HTML pages and its JSON API.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/internal/booking"
	"github.com/wolfman30/homecare-booking/internal/identity"
	"github.com/wolfman30/homecare-booking/internal/query"
	"github.com/wolfman30/homecare-booking/internal/views"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home",
	"services",
	"service",
	"booking",
	"confirmation",
	"my_bookings",
	"not_found",
	"error",
}

// Deps are the collaborators shared by the pages and the API.
type Deps struct {
	Queries  *query.Queries
	Workflow *booking.Workflow
	Identity *identity.Manager
	Logger   *logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return d
}

var funcs = template.FuncMap{
	"price":           views.FormatPrice,
	"statusCategory":  views.StatusCategory,
	"awaitingContact": views.AwaitingContact,
	"fieldError": func(errs booking.FieldErrors, field string) string {
		return errs[field]
	},
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web: parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// nav is the layout's view of the visitor.
type nav struct {
	Authenticated bool
	Principal     backend.Principal
	Path          string
}

type page struct {
	Title string
	Nav   nav
	Data  any
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("unknown template", "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sess := sessionFrom(r)
	principal, authed := s.identity.CurrentIdentity(sess)
	p := page{
		Title: title,
		Nav:   nav{Authenticated: authed, Principal: principal, Path: r.URL.RequestURI()},
		Data:  data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		s.logger.Error("render template", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// sessionFrom returns the request's session, or a throwaway anonymous one
// when the identity middleware did not run.
func sessionFrom(r *http.Request) *identity.Session {
	if sess, ok := identity.FromContext(r.Context()); ok {
		return sess
	}
	return &identity.Session{State: identity.StateAnonymous}
}
