package cache

import (
	"context"
	"strings"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the cache writes.
const DefaultRedisPrefix = "langsys::"

// scanBatch is the COUNT hint of each SCAN round trip.
const scanBatch = 100

// RedisCache is a Redis-backed cache.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379")
	TTL       int    // TTL in seconds (0 = no expiration)
	KeyPrefix string // Prefix for all keys (default: "langsys::")
}

// NewRedisCache creates a new Redis cache with the given configuration.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if cfg.URL == "" {
		cfg.URL = "redis://localhost:6379"
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &langsys.CacheError{Message: "parsing redis url", Cause: err}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &langsys.CacheError{Message: "connecting to redis", Cause: err}
	}

	return NewRedisCacheFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing Redis client.
func NewRedisCacheFromClient(client *redis.Client, ttlSeconds int, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisPrefix
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = 0
	}

	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a value from Redis. Connection errors are reported as misses.
func (c *RedisCache) Get(key string) (string, bool) {
	val, err := c.client.Get(context.Background(), c.keyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a value in Redis.
func (c *RedisCache) Set(key string, value string) error {
	if err := c.client.Set(context.Background(), c.keyPrefix+key, value, c.ttl).Err(); err != nil {
		return &langsys.CacheError{Message: "redis set", Cause: err}
	}
	return nil
}

// Delete removes key from Redis.
func (c *RedisCache) Delete(key string) error {
	if err := c.client.Del(context.Background(), c.keyPrefix+key).Err(); err != nil {
		return &langsys.CacheError{Message: "redis del", Cause: err}
	}
	return nil
}

// Clear deletes every key under the prefix.
func (c *RedisCache) Clear() error {
	ctx := context.Background()
	return c.scan(ctx, func(keys []string) error {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return &langsys.CacheError{Message: "redis del", Cause: err}
		}
		return nil
	})
}

// Entries returns every key under the prefix with its value, prefix removed.
func (c *RedisCache) Entries() (map[string]string, error) {
	ctx := context.Background()
	result := make(map[string]string)
	err := c.scan(ctx, func(keys []string) error {
		values, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			return &langsys.CacheError{Message: "redis mget", Cause: err}
		}
		for i, v := range values {
			if s, ok := v.(string); ok {
				result[strings.TrimPrefix(keys[i], c.keyPrefix)] = s
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// scan calls fn with each non-empty batch of prefixed keys.
func (c *RedisCache) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return &langsys.CacheError{Message: "redis scan", Cause: err}
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping() error {
	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return &langsys.CacheError{Message: "redis ping", Cause: err}
	}
	return nil
}

var _ Enumerable = (*RedisCache)(nil)
