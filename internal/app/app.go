package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/config"
	"github.com/vovakirdan/roomcast-server/internal/core"
	"github.com/vovakirdan/roomcast-server/internal/store"
	"github.com/vovakirdan/roomcast-server/internal/store/memstore"
	"github.com/vovakirdan/roomcast-server/internal/store/redisstore"
	"github.com/vovakirdan/roomcast-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/roomcast-server/internal/transport/http"
)

// App wires together storage, rooms and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	history         store.Log
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	history, err := newHistory(cfg)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	logger.Info().Str("backend", cfg.StorageBackend).Msg("history store initialized")

	registry := core.NewRegistry(history, logger)
	server := transporthttp.NewServer(registry, history, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		history:         history,
		log:             logger,
	}, nil
}

// newHistory selects the message log backend from configuration.
func newHistory(cfg config.Config) (store.Log, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return sqlite.New(cfg.DatabasePath)
	case config.BackendRedis:
		return redisstore.New(cfg.RedisAddr)
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")

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

// cleanup closes the history store and other resources.
func (a *App) cleanup() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close history store")
		} else {
			a.log.Info().Msg("history store closed")
		}
	}
}
