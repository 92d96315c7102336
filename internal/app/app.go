package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/pubsub"
	"github.com/vovakirdan/wirechat-presence/internal/service/rooms"
	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-presence/internal/transport/http"
)

// App wires the capacity backend: store, auth, room service and the
// HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	archiver        *rooms.Archiver
	store           store.Store
	publisher       *pubsub.Publisher
	log             *zerolog.Logger
}

// New constructs the backend with provided configuration.
func New(cfg config.ServerConfig, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig, cfg.Managers)

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	var publisher rooms.Publisher
	if cfg.RedisURL != "" {
		p, err := pubsub.Connect(cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init pubsub: %w", err)
		}
		a.publisher = p
		publisher = p
		logger.Info().Msg("capacity publishing enabled")
	}

	roomService := rooms.New(st, publisher, logger)
	a.archiver = rooms.NewArchiver(roomService, cfg.ArchiveInterval, cfg.ArchiveMaxIdle, logger)

	gin.SetMode(gin.ReleaseMode)
	a.server = transporthttp.NewServer(authService, roomService, cfg, logger)
	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	a.log.Info().Str("addr", a.server.Addr).Msg("starting capacity backend")
	return serve(ctx, a.server, a.shutdownTimeout, a.log, func(ctx context.Context) {
		go a.archiver.Run(ctx)
	}, a.cleanup)
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close pubsub")
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

// serve runs server until ctx is done, then shuts it down gracefully.
// start is called once before listening; cleanup runs on every exit path.
func serve(ctx context.Context, server *stdhttp.Server, shutdownTimeout time.Duration, logger *zerolog.Logger, start func(context.Context), cleanup func()) error {
	serverErr := make(chan error, 1)

	if start != nil {
		start(ctx)
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info().Msg("shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			cleanup()
			return err
		}

		cleanup()
		return <-serverErr
	}
}
