package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tasks:"

// RedisCache is a ListCache backed by Redis, for deployments running
// more than one API process.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache using the given client. Zero TTL
// stores entries without expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// GetOrPopulate returns the cached value for key, producing and storing
// it on a miss. Redis errors are logged and treated as misses.
func (c *RedisCache) GetOrPopulate(ctx context.Context, key string, produce Producer) ([]byte, error) {
	fullKey := keyPrefix + key

	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.Warn("cache get failed, producing fresh result", "key", fullKey, "error", err)
	}

	data, err = produce(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, fullKey, data, c.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", fullKey, "error", err)
	}

	return data, nil
}

// Invalidate drops the entry for key.
func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		slog.Warn("cache delete failed", "key", keyPrefix+key, "error", err)
	}
}

// InvalidateAll drops every entry under the listing prefix.
func (c *RedisCache) InvalidateAll(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("cache scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache flush failed", "error", err)
	}
}
