package utils

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yatube/yatube/config"
)

const (
	defaultCacheTTL = time.Hour
	// cacheNamespace prefixes every page cache key in Redis so Clear never touches other data.
	cacheNamespace = "yatube:cache:"
)

// CacheStore keeps rendered responses for a bounded time.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
	InvalidateByPrefix(ctx context.Context, prefix string) error
}

// NewCacheStore picks Redis when configured and reachable, falling back to process memory.
func NewCacheStore(cfg config.AppConfig) CacheStore {
	if cfg.CacheBackend != "memory" {
		if rc := GetRedis(); rc != nil {
			return NewRedisCache(rc, cacheNamespace)
		}
		Sugar.Warn("redis unavailable, using in-memory page cache")
	}
	return NewMemoryCache()
}

// RedisCache stores entries in Redis under a common key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache returns a RedisCache storing keys under prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get returns cached bytes for a key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// Set stores bytes, using the default TTL when ttl is not positive.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Clear deletes every key of this cache.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.InvalidateByPrefix(ctx, "")
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func (c *RedisCache) InvalidateByPrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, cur, err := c.client.Scan(ctx, cursor, c.prefix+prefix+"*", 1000).Result()
		if err != nil {
			return err
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}
