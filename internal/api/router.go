package api

import (
	"net/http"

	"github.com/bcnelson/fulcrum-data-manager/internal/api/handler"
	"github.com/bcnelson/fulcrum-data-manager/internal/api/middleware"
	"github.com/bcnelson/fulcrum-data-manager/internal/metrics"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/bcnelson/fulcrum-data-manager/internal/validation"
	"github.com/bcnelson/fulcrum-data-manager/internal/web"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Options holds the router's dependencies.
type Options struct {
	Sets     *repository.SetRepository
	Tags     *repository.TagRepository
	Schema   validation.Schema
	APIToken string

	Logger  *zap.Logger
	Metrics *metrics.Metrics // nil disables /metrics

	OIDC *web.OIDCComponents // nil disables UI sign-in
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger.Named("http"), opts.Metrics))

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	// Web UI (serves HTML)
	r.Mount("/", web.NewRouter(web.Options{
		Sets:   opts.Sets,
		Tags:   opts.Tags,
		Schema: opts.Schema,
		Logger: logger.Named("web"),
		OIDC:   opts.OIDC,
	}))

	// API routes (bearer token, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.BearerToken(opts.APIToken, logger))

		apiLogger := logger.Named("api")

		setHandler := handler.NewSetHandler(opts.Sets, opts.Schema, apiLogger)
		r.Get("/sets", setHandler.List)
		r.Post("/sets", setHandler.Create)
		r.Get("/sets/{id}", setHandler.Get)
		r.Put("/sets/{id}", setHandler.Update)
		r.Delete("/sets/{id}", setHandler.Delete)

		tagHandler := handler.NewTagHandler(opts.Tags, apiLogger)
		r.Get("/tags", tagHandler.List)
		r.Post("/tags", tagHandler.Create)
		r.Get("/tags/export", tagHandler.Export)
		r.Get("/tags/{id}", tagHandler.Get)
		r.Put("/tags/{id}", tagHandler.Update)
		r.Delete("/tags/{id}", tagHandler.Delete)
	})

	return r
}
