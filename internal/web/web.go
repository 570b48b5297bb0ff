package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bcnelson/fulcrum-data-manager/internal/auth"
	"github.com/bcnelson/fulcrum-data-manager/internal/export"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/bcnelson/fulcrum-data-manager/internal/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates static
var content embed.FS

// OIDCComponents holds the pieces of the sign-in flow. A nil *OIDCComponents
// leaves the UI open.
type OIDCComponents struct {
	Provider  *auth.Provider
	Sessions  *auth.SessionManager
	State     *auth.StateStore
	LogoutURL string // provider end-session URL, optional
}

// Options holds the web UI's dependencies.
type Options struct {
	Sets   *repository.SetRepository
	Tags   *repository.TagRepository
	Schema validation.Schema
	Logger *zap.Logger
	OIDC   *OIDCComponents
}

// Server holds dependencies for web handlers.
type Server struct {
	sets       *repository.SetRepository
	tags       *repository.TagRepository
	exporter   *export.Exporter
	schema     validation.Schema
	logger     *zap.Logger
	oidc       *OIDCComponents
	templates  map[string]*template.Template
	components *template.Template
}

// NewRouter creates a new web router with all routes configured.
func NewRouter(opts Options) http.Handler {
	s := newServer(opts)

	r := chi.NewRouter()

	// Static files
	staticFS, _ := fs.Sub(content, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Public routes
	r.Get("/login", s.handleLoginPage)
	r.Get("/auth/login", s.handleOIDCLogin)
	r.Get("/auth/callback", s.handleOIDCCallback)
	r.Get("/logout", s.handleLogout)

	// Protected routes (require session when sign-in is configured)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionAuth)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/sets", http.StatusSeeOther)
		})

		// Sets
		r.Get("/sets", s.handleSetsList)
		r.Get("/sets/new", s.handleSetNew)
		r.Get("/sets/aspect-row", s.handleAspectRow)
		r.Post("/sets", s.handleSetCreate)
		r.Get("/sets/{id}/edit", s.handleSetEdit)
		r.Post("/sets/{id}", s.handleSetUpdate)
		r.Delete("/sets/{id}", s.handleSetDelete)

		// Tags
		r.Get("/tags", s.handleTagsList)
		r.Get("/tags/new", s.handleTagNew)
		r.Get("/tags/set-row", s.handleSetRow)
		r.Get("/tags/export", s.handleTagsExport)
		r.Post("/tags", s.handleTagCreate)
		r.Get("/tags/{id}/edit", s.handleTagEdit)
		r.Post("/tags/{id}", s.handleTagUpdate)
		r.Delete("/tags/{id}", s.handleTagDelete)
	})

	return r
}

func newServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sets:     opts.Sets,
		tags:     opts.Tags,
		exporter: export.New(opts.Tags),
		schema:   opts.Schema,
		logger:   logger,
		oidc:     opts.OIDC,
	}
	s.templates, s.components = parseTemplates()
	return s
}

var funcMap = template.FuncMap{
	"join":  strings.Join,
	"dict":  dict,
	"field": fieldKey,
	"add":   func(a, b int) int { return a + b },
}

// parseTemplates parses every page together with the base layout and the
// shared components. The components are also parsed on their own so htmx
// fragments can be rendered without a page.
func parseTemplates() (map[string]*template.Template, *template.Template) {
	baseContent, _ := content.ReadFile("templates/base.html")

	var components strings.Builder
	componentFiles, _ := fs.Glob(content, "templates/components/*.html")
	for _, path := range componentFiles {
		b, _ := content.ReadFile(path)
		components.Write(b)
	}

	shared := template.Must(template.New("components").Funcs(funcMap).Parse(components.String()))

	templates := make(map[string]*template.Template)
	pageFiles, _ := fs.Glob(content, "templates/pages/*.html")
	for _, pagePath := range pageFiles {
		pageName := strings.TrimSuffix(filepath.Base(pagePath), ".html")
		pageContent, _ := content.ReadFile(pagePath)

		tmpl, err := template.New(pageName).Funcs(funcMap).
			Parse(string(baseContent) + components.String() + string(pageContent))
		if err != nil {
			panic("failed to parse template " + pageName + ": " + err.Error())
		}
		templates[pageName] = tmpl
	}

	return templates, shared
}

// dict creates a map from key-value pairs for use in templates.
func dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		m[key] = values[i+1]
	}
	return m
}

// PageData holds common data passed to all page templates.
type PageData struct {
	Title   string
	Active  string // Current nav item
	User    string // signed-in user, empty when sign-in is off
	Flash   *FlashMessage
	Content any
}

// FlashMessage represents a flash message.
type FlashMessage struct {
	Type    string // "success", "error", "info"
	Message string
}
