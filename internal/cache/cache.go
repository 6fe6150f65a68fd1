// ABOUTME: Optional Redis read cache with JSON-encoded values
// ABOUTME: A nil *Cache no-ops every method so callers never branch on enablement

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin wrapper over a Redis client. Values are JSON-encoded.
// All methods are safe on a nil receiver, which is how a disabled cache is
// represented.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to the Redis instance at url (redis:// scheme) and verifies
// the connection with a ping.
func New(ctx context.Context, url string) (*Cache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	logger := slog.Default().With("component", "cache")
	logger.Info("redis cache connected")
	return &Cache{client: client, logger: logger}, nil
}

// Get unmarshals the cached value for key into dest, reporting whether a
// usable entry was found. Cache misses and decode failures both read as a
// miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dest) == nil
}

// Set stores value under key with the given TTL. Failures are logged, not
// returned; the cache is best-effort.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// Del removes the given keys.
func (c *Cache) Del(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("cache del failed", "error", err)
	}
}

// DelPattern removes every key matching pattern, scanning and deleting in
// batches.
func (c *Cache) DelPattern(ctx context.Context, pattern string) {
	if c == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	const batchSize = 100

	pipe := c.client.Pipeline()
	count := 0

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++

		if count >= batchSize {
			if _, err := pipe.Exec(ctx); err != nil {
				c.logger.Debug("cache pattern delete failed", "pattern", pattern, "error", err)
			}
			count = 0
		}
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Debug("cache pattern delete failed", "pattern", pattern, "error", err)
		}
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
