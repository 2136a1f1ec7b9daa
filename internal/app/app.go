package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/darryyna/chatline-server/internal/auth"
	"github.com/darryyna/chatline-server/internal/cache"
	"github.com/darryyna/chatline-server/internal/chat"
	"github.com/darryyna/chatline-server/internal/config"
	"github.com/darryyna/chatline-server/internal/store"
	"github.com/darryyna/chatline-server/internal/store/sqlite"
	transporthttp "github.com/darryyna/chatline-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *chat.Hub
	store           store.Store
	cache           *cache.Cache
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	// A missing JWT secret is fatal for the process, not just a connection.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}

	authService := auth.NewService(st, jwtConfig, cfg.ResetTTL)
	hub := chat.NewHub(st, logger)
	gate := chat.NewGate(authService, st, logger)

	var userCache *cache.Cache
	if cfg.RedisAddr != "" {
		userCache = cache.New(cfg.RedisAddr, cfg.CacheTTL, logger)
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("response cache enabled")
	}

	server := transporthttp.NewServer(cfg, hub, gate, authService, st, userCache, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		cache:           userCache,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close cache")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
