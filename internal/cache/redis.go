package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// opTimeout bounds every backend call so a hung Redis cannot stall the
// request pipeline. Failures inside the window degrade to a miss/no-op.
const opTimeout = 2 * time.Second

// Redis implements Store using Redis for shared storage.
// This is suitable for multi-instance deployments behind a load balancer.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed store from a connection URL
// (e.g., "redis://localhost:6379" or "redis://:password@host:6379/0").
// The connection is verified at construction; callers that receive an error
// should fall back to running without a shared cache.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis cache connected", "addr", opts.Addr)

	return &Redis{client: client}, nil
}

// Get retrieves a value from Redis. Any failure is reported as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set stores a value with the given TTL. Failures are swallowed.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		slog.Debug("cache set failed", "key", key, "error", err)
	}
}

// Delete removes a key. Failures are swallowed.
func (r *Redis) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		slog.Debug("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPattern removes every key matching the pattern using SCAN and
// returns the number deleted. A failure mid-scan returns the count so far.
func (r *Redis) DeleteByPattern(ctx context.Context, pattern string) int {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count := 0
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Debug("cache pattern delete failed", "key", iter.Val(), "error", err)
			continue
		}
		count++
	}
	if err := iter.Err(); err != nil {
		slog.Debug("cache scan failed", "pattern", pattern, "error", err)
	}
	return count
}

// Clear flushes the database. Failures are swallowed.
func (r *Redis) Clear(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.FlushDB(ctx).Err(); err != nil {
		slog.Debug("cache clear failed", "error", err)
	}
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
