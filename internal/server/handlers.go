package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"dynaform/internal/core"
	"dynaform/internal/store"
)

// Handler holds the HTTP handlers
type Handler struct {
	store store.Store
}

// NewHandler creates a new handler backed by the given store
func NewHandler(st store.Store) *Handler {
	return &Handler{
		store: st,
	}
}

// Root handles GET /
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Dynamic Form System API",
		"health":  "/health",
	})
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Dynamic Form System API",
		"cache":   "enabled",
	})
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return c.JSON(apiErr.HTTPStatusCode(), apiErr.ToJSON())
	}

	slog.Error("unexpected handler error", "error", err, "path", c.Request().URL.Path)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"detail": "Internal server error",
	})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, core.NewInvalidRequestError("invalid id: "+c.Param("id"), err)
	}
	return id, nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
