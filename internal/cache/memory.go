package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
)

// entry wraps a cached value with its expiration time.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-memory W-TinyLFU store backed by otter. Suitable for
// single-instance deployments and as the fallback when Redis is unreachable.
type Memory struct {
	cache *otter.Cache[string, entry]
}

// NewMemory creates an in-memory store with the given max entry count.
func NewMemory(maxSize int) (*Memory, error) {
	c, err := otter.New[string, entry](&otter.Options[string, entry]{
		MaximumSize: maxSize,
		// Backend eviction follows each entry's own deadline, so per-call
		// TTLs above or below the default are honored.
		ExpiryCalculator: otter.ExpiryWritingFunc[string, entry](func(e otter.Entry[string, entry]) time.Duration {
			return time.Until(e.Value.expiresAt)
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Memory{cache: c}, nil
}

// Get retrieves a value if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.cache.Invalidate(key)
		return nil, false
	}
	return e.data, true
}

// Set stores a value with per-entry TTL.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	m.cache.Set(key, entry{
		data:      val,
		expiresAt: time.Now().Add(ttl),
	})
}

// Delete removes a value.
func (m *Memory) Delete(_ context.Context, key string) {
	m.cache.Invalidate(key)
}

// DeleteByPattern removes every live entry whose key matches the pattern
// and returns the number removed. Expired entries do not count.
func (m *Memory) DeleteByPattern(_ context.Context, pattern string) int {
	now := time.Now()
	count := 0
	for key, e := range m.cache.All() {
		if !matchPattern(key, pattern) {
			continue
		}
		m.cache.Invalidate(key)
		if !now.After(e.expiresAt) {
			count++
		}
	}
	return count
}

// Clear removes all entries.
func (m *Memory) Clear(_ context.Context) {
	m.cache.InvalidateAll()
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}

// matchPattern implements the prefix-glob semantics shared with Redis SCAN
// MATCH for the patterns this service generates: a single trailing '*'
// matches any suffix, anything else must match exactly.
func matchPattern(key, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return key == pattern
}
