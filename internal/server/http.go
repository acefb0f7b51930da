// Package server provides the HTTP handlers and server setup for the form
// service.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dynaform/internal/cache"
	"dynaform/internal/httpcache"
	"dynaform/internal/store"
)

// DefaultBodySizeLimit caps request bodies at 1MB; form schemas and
// submissions are small documents.
const DefaultBodySizeLimit int64 = 1 << 20

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	// CacheTTL is the TTL for cached GET responses (default: 1 hour).
	CacheTTL time.Duration
	// MetricsEnabled exposes the Prometheus /metrics endpoint.
	MetricsEnabled bool
	// BodySizeLimit is the max request body size in bytes (default: 1MB).
	BodySizeLimit int64
}

// New creates a new HTTP server. cacheStore may be nil to run uncached.
func New(st store.Store, cacheStore cache.Store, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true

	handler := NewHandler(st)

	// Global middleware stack (order matters): the cache middleware sits
	// innermost so recovery and logging observe cached responses too.
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogMethod: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				slog.Error("request", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
			} else {
				slog.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	bodySizeLimit := cfg.bodySizeLimit()
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodySizeLimit, 10)))

	e.Use(httpcache.Middleware(cacheStore, cfg.cacheTTL()))

	// Public routes
	e.GET("/", handler.Root)
	e.GET("/health", handler.Health)
	if cfg != nil && cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// Forms. The stats route is registered before :id so it does not get
	// captured as a form ID.
	e.POST("/api/forms", handler.CreateForm)
	e.GET("/api/forms", handler.ListForms)
	e.GET("/api/forms/stats/summary", handler.FormStats)
	e.GET("/api/forms/:id", handler.GetForm)
	e.PUT("/api/forms/:id", handler.UpdateForm)
	e.DELETE("/api/forms/:id", handler.DeleteForm)

	// Submissions
	e.POST("/api/submissions", handler.CreateSubmission)
	e.GET("/api/submissions", handler.ListSubmissions)
	e.GET("/api/submissions/analytics/:id", handler.SubmissionAnalytics)
	e.GET("/api/submissions/:id", handler.GetSubmission)
	e.DELETE("/api/submissions/:id", handler.DeleteSubmission)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

func (cfg *Config) cacheTTL() time.Duration {
	if cfg != nil && cfg.CacheTTL > 0 {
		return cfg.CacheTTL
	}
	return cache.DefaultTTL
}

func (cfg *Config) bodySizeLimit() int64 {
	if cfg != nil && cfg.BodySizeLimit > 0 {
		return cfg.BodySizeLimit
	}
	return DefaultBodySizeLimit
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
