package domain

import (
	"context"
	"time"
)

// Cache is the interface for caching template and client-configuration
// payloads between the repository and the calculation path. Supports
// two-phase caching: local LRU backed by Redis.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// IncrementCounter atomically increments a windowed counter and
	// returns the new value. Used for per-template calculation stats.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `env:"TALLY_CACHE_TYPE"`

	// Local LRU cache settings
	LocalMaxSize int           `env:"TALLY_CACHE_LOCAL_SIZE"`
	LocalTTL     time.Duration `env:"TALLY_CACHE_LOCAL_TTL"`

	// Redis settings
	RedisAddr     string `env:"TALLY_REDIS_ADDR"`
	RedisPassword string `env:"TALLY_REDIS_PASSWORD"`
	RedisDB       int    `env:"TALLY_REDIS_DB"`

	// Two-phase settings
	EnableTwoPhase bool `env:"TALLY_CACHE_TWO_PHASE"` // If true, check local first, then Redis
}
