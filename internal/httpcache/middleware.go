package httpcache

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"dynaform/internal/cache"
)

// cachedPrefix is the namespace the cache wraps. Requests outside it pass
// through with zero cache interaction.
const cachedPrefix = "/api/"

// Middleware returns the read-through cache middleware. A nil store or a
// non-positive TTL disables caching entirely; the middleware then behaves
// as a transparent pass-through.
//
// Invariants: a cache hit never invokes the downstream handler, the bytes
// returned to the client are always exactly the handler's bytes, and no
// cache failure ever alters a response versus running uncached.
func Middleware(store cache.Store, ttl time.Duration) echo.MiddlewareFunc {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if store == nil {
				return next(c)
			}

			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, cachedPrefix) {
				return next(c)
			}

			switch req.Method {
			case http.MethodGet:
				return serveRead(c, next, store, ttl)
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				return serveWrite(c, next, store)
			default:
				return next(c)
			}
		}
	}
}

// serveRead handles a cacheable GET: hit short-circuits, miss delegates to
// the handler and captures a successful JSON response for future hits.
func serveRead(c echo.Context, next echo.HandlerFunc, store cache.Store, ttl time.Duration) error {
	req := c.Request()
	key := ReadKey(req.Method, req.URL.Path, req.URL.RawQuery)

	if body, ok := store.Get(req.Context(), key); ok {
		cacheHits.Inc()
		slog.Debug("cache hit", "key", key)
		return c.JSONBlob(http.StatusOK, body)
	}
	cacheMisses.Inc()

	rec := &captureWriter{ResponseWriter: c.Response().Writer}
	c.Response().Writer = rec

	if err := next(c); err != nil {
		// The error handler renders this response; nothing to cache.
		return err
	}

	// Only successful JSON responses are cached. A body that is not valid
	// JSON is served as-is and simply not cached.
	if c.Response().Status == http.StatusOK {
		body := rec.body.Bytes()
		if json.Valid(body) {
			store.Set(req.Context(), key, bytes.Clone(body), ttl)
			cacheStores.Inc()
			slog.Debug("cached response", "key", key, "bytes", len(body))
		}
	}
	return nil
}

// serveWrite handles a mutation: the handler always runs first, then the
// affected cache family is swept. Sweep outcome never affects the
// mutation's own response.
func serveWrite(c echo.Context, next echo.HandlerFunc, store cache.Store) error {
	req := c.Request()
	err := next(c)

	for _, pattern := range InvalidationPatterns(req.Method, req.URL.Path) {
		removed := store.DeleteByPattern(req.Context(), pattern)
		cacheInvalidations.Add(float64(removed))
		slog.Debug("cache invalidated", "pattern", pattern, "removed", removed, "method", req.Method)
	}
	return err
}

// captureWriter tees the handler's response body so it can be cached while
// streaming to the client untouched.
type captureWriter struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
