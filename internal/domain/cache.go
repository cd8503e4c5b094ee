package domain

import (
	"context"
	"time"
)

// Cache stores serialized comparison results.
// Supports a local LRU, Redis, or both as L1/L2.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetComparison retrieves a cached comparison result.
	GetComparison(ctx context.Context, key string) (*ComparisonResult, error)

	// SetComparison caches a comparison result.
	SetComparison(ctx context.Context, key string, result *ComparisonResult, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory", "redis" or "none"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnableTwoPhase checks the local cache first, then Redis
	EnableTwoPhase bool

	// ResultTTL is how long comparison results stay cached
	ResultTTL time.Duration
}
