// Package cache provides the persistent key/value stores behind translation
// maps, authorization results and registered item ledgers.
package cache

import (
	"fmt"
	"strings"
	"time"
)

// Cache is a string key/value store with optional expiry.
type Cache interface {
	// Get retrieves a cached value. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a value in the cache.
	Set(key string, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Clear removes every entry owned by the cache.
	Clear() error
}

// Enumerable is a cache whose live entries can be listed, for export.
type Enumerable interface {
	Cache
	Entries() (map[string]string, error)
}

// Driver names accepted by New.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverNull   = "null"
	DriverNone   = "none"
)

// Options configures New.
type Options struct {
	TTL      time.Duration // Zero means entries never expire
	Path     string        // Directory of the file cache
	RedisURL string        // Connection URL of the Redis cache
	Prefix   string        // Key prefix of the Redis cache
}

// New creates the cache named by driver.
func New(driver string, opts Options) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemoryCache(opts.TTL), nil
	case DriverFile, "":
		return NewFileCache(opts.Path, opts.TTL)
	case DriverRedis:
		return NewRedisCache(RedisConfig{
			URL:       opts.RedisURL,
			TTL:       int(opts.TTL / time.Second),
			KeyPrefix: opts.Prefix,
		})
	case DriverNull, DriverNone:
		return NullCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}

// NullCache stores nothing.
type NullCache struct{}

// Get always misses.
func (NullCache) Get(string) (string, bool) { return "", false }

// Set discards value.
func (NullCache) Set(string, string) error { return nil }

// Delete does nothing.
func (NullCache) Delete(string) error { return nil }

// Clear does nothing.
func (NullCache) Clear() error { return nil }

var _ Cache = NullCache{}
