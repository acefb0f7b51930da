// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the form service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dynaform/config"
	"dynaform/internal/cache"
	"dynaform/internal/server"
	"dynaform/internal/store"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config *config.Config
	store  store.Store
	cache  cache.Store
	server *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &App{
		config: cfg,
	}

	st, err := store.New(ctx, store.Config{
		Type: cfg.Storage.Type,
		SQLite: store.SQLiteConfig{
			Path: cfg.Storage.SQLitePath,
		},
		Postgres: store.PostgresConfig{
			URL: cfg.Storage.DatabaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.store = st

	cacheStore, err := initCache(cfg.Cache)
	if err != nil {
		closeErr := st.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w (also: store close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	app.cache = cacheStore

	app.logStartupInfo()

	app.server = server.New(st, cacheStore, &server.Config{
		CacheTTL:       time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	return app, nil
}

// initCache picks the cache backend: Redis when a URL is configured, the
// in-process cache otherwise. A Redis connection failure falls back to the
// in-process cache rather than failing startup, since the service is fully
// functional without a shared cache.
func initCache(cfg config.CacheConfig) (cache.Store, error) {
	if cfg.RedisURL != "" {
		c, err := cache.NewRedis(cfg.RedisURL)
		if err == nil {
			slog.Info("response cache enabled", "backend", "redis")
			return c, nil
		}
		slog.Warn("redis unavailable, falling back to in-process cache", "error", err)
	}

	c, err := cache.NewMemory(cfg.MemoryMaxEntries)
	if err != nil {
		return nil, err
	}
	slog.Info("response cache enabled", "backend", "memory", "max_entries", cfg.MemoryMaxEntries)
	return c, nil
}

// Store returns the persistence backend.
func (a *App) Store() store.Store {
	return a.store
}

// Cache returns the response cache backend.
func (a *App) Cache() cache.Store {
	return a.cache
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown via server.Shutdown(ctx), honoring the passed context timeout/cancellation.
// 2. Cache close (releases the Redis connection or in-process cache resources).
// 3. Store close.
//
// Shutdown is idempotent and safe for repeated calls; after the first call, subsequent calls are no-ops.
// It attempts every close step, aggregates failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Close the cache
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Error("cache close error", "error", err)
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	// 3. Close the store
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("store close error", "error", err)
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	slog.Info("storage configured", "type", cfg.Storage.Type)

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", "/metrics")
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("response cache TTL", "seconds", cfg.Cache.TTLSeconds)
}
