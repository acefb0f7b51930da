// Package cache provides the key/value store backing the HTTP response
// cache. Supports both in-memory and Redis backends for multi-instance
// deployments.
//
// Every operation is fail-open: a backend failure is indistinguishable from
// a miss, and mutations silently no-op. The cache is strictly a performance
// layer and must never block or fail a request.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the time-to-live applied to cached responses (1 hour).
const DefaultTTL = 3600 * time.Second

// Store defines the interface for response cache storage.
// Implementations must be safe for concurrent use and must degrade to a
// miss or no-op when the backend is unreachable.
type Store interface {
	// Get retrieves a value. The second return is false on a miss, an
	// expired entry, or any backend failure.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL, overwriting any prior entry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)

	// Delete removes the entry if present.
	Delete(ctx context.Context, key string)

	// DeleteByPattern removes every entry whose key matches the prefix-glob
	// pattern (a single trailing '*' matches any suffix) and returns the
	// number removed.
	DeleteByPattern(ctx context.Context, pattern string) int

	// Clear removes all entries.
	Clear(ctx context.Context)

	// Close releases any resources held by the store.
	Close() error
}
