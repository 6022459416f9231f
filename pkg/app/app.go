// Package app wires configuration, storage, the provider client and the web
// routes into a running HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-training/oauth-member-demo/pkg/config"
	"github.com/go-training/oauth-member-demo/pkg/flow"
	"github.com/go-training/oauth-member-demo/pkg/logger"
	"github.com/go-training/oauth-member-demo/pkg/provider"
	"github.com/go-training/oauth-member-demo/pkg/session"
	"github.com/go-training/oauth-member-demo/pkg/store"
	"github.com/go-training/oauth-member-demo/pkg/web"

	"github.com/appleboy/graceful"
)

const shutdownTimeout = 10 * time.Second

// NewHandler builds the HTTP handler for cfg on top of the given state store.
func NewHandler(cfg config.Config, states store.Store) (http.Handler, error) {
	client := provider.NewClient(cfg.ProviderURL, cfg.ClientID, cfg.ClientSecret,
		provider.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)
	f := flow.New(client, states,
		flow.WithStateTTL(cfg.StateTTL),
		flow.WithStepTimeout(cfg.RequestTimeout),
	)

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookie)
	if err != nil {
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	srv := web.NewServer(f, sessions, web.Routes{
		Lobby:    cfg.LobbyPath,
		Login:    cfg.LoginPath,
		Callback: cfg.CallbackPath,
	})
	return srv.Router(), nil
}

// Run loads the configuration, serves until SIGINT or SIGTERM and then
// shuts down gracefully. loginPath is the default route of the flow initiator.
func Run(loginPath string) error {
	cfg, err := config.Load(loginPath)
	if err != nil {
		return err
	}
	logger.NewWithLevel(cfg.LogLevel)

	states, err := store.NewStore(store.Config{
		Type: store.ParseStoreType(cfg.StateStore),
		Redis: store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
	})
	if err != nil {
		return fmt.Errorf("create state store: %w", err)
	}
	slog.Info("State store ready", "type", store.ParseStoreType(cfg.StateStore).String())

	handler, err := NewHandler(cfg, states)
	if err != nil {
		states.Close()
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	m := graceful.NewManager()
	m.AddRunningJob(func(ctx context.Context) error {
		slog.Info("HTTP server listening",
			"addr", cfg.Addr(),
			"lobby", cfg.LobbyPath,
			"login", cfg.LoginPath,
			"callback", cfg.CallbackPath,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		slog.Info("Shutdown signal received, shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Server forced to shutdown", "err", err)
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		states.Close()
		return nil
	})

	<-m.Done()
	slog.Info("Server shutdown gracefully")
	return nil
}
