package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// The decision engine is pure, so a cached decision for an identical
// request fingerprint can be replayed safely.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetDecision retrieves a cached decision response.
	GetDecision(ctx context.Context, fingerprint string) (*DecisionResponse, error)

	// SetDecision caches a decision response by request fingerprint.
	SetDecision(ctx context.Context, fingerprint string, resp *DecisionResponse, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for velocity windows (e.g. transactions per location).
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `yaml:"type"`

	// Local LRU cache settings (Community tier)
	LocalMaxSize int           `yaml:"local_max_size"`
	LocalTTL     time.Duration `yaml:"local_ttl"`

	// Redis settings (Pro tier)
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Two-phase settings
	EnableTwoPhase bool `yaml:"enable_two_phase"` // If true, check local first, then Redis

	// DecisionTTL bounds how long a decision response is replayed for an
	// identical request fingerprint.
	DecisionTTL time.Duration `yaml:"decision_ttl"`
}
