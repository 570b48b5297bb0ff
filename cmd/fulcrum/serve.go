package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/api"
	"github.com/bcnelson/fulcrum-data-manager/internal/auth"
	"github.com/bcnelson/fulcrum-data-manager/internal/config"
	"github.com/bcnelson/fulcrum-data-manager/internal/metrics"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/bcnelson/fulcrum-data-manager/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	store, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	schema, err := cfg.Aspects.Schema()
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var oidc *web.OIDCComponents
	if cfg.OIDC.Enabled {
		oidc, err = newOIDCComponents(ctx, cfg.OIDC)
		if err != nil {
			return err
		}
		logger.Info("OIDC sign-in enabled", zap.String("issuer", cfg.OIDC.IssuerURL))
	}

	router := api.NewRouter(api.Options{
		Sets:     repository.NewSetRepository(store, logger.Named("sets"), m),
		Tags:     repository.NewTagRepository(store, logger.Named("tags"), m),
		Schema:   schema,
		APIToken: cfg.API.Token,
		Logger:   logger,
		Metrics:  m,
		OIDC:     oidc,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting Fulcrum Data Manager",
			zap.String("addr", "http://"+cfg.Server.Addr()),
			zap.String("db_driver", cfg.Database.Driver),
			zap.Int("min_values", schema.MinValues),
			zap.Int("max_values", schema.MaxValues),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newOIDCComponents discovers the provider and prepares the cookie stores.
// Cookies are marked Secure when the redirect URL is https.
func newOIDCComponents(ctx context.Context, cfg config.OIDCConfig) (*web.OIDCComponents, error) {
	key, err := cfg.GetSessionSecretBytes()
	if err != nil {
		return nil, err
	}
	secure := strings.HasPrefix(cfg.RedirectURL, "https://")

	provider, err := auth.NewProvider(ctx, auth.ProviderConfig{
		IssuerURL:      cfg.IssuerURL,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		RedirectURL:    cfg.RedirectURL,
		Scopes:         cfg.GetScopes(),
		AllowedDomains: cfg.GetAllowedDomains(),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing OIDC provider: %w", err)
	}
	sessions, err := auth.NewSessionManager(key, cfg.SessionDuration, secure)
	if err != nil {
		return nil, err
	}
	state, err := auth.NewStateStore(key, secure)
	if err != nil {
		return nil, err
	}

	return &web.OIDCComponents{
		Provider:  provider,
		Sessions:  sessions,
		State:     state,
		LogoutURL: cfg.LogoutURL,
	}, nil
}
