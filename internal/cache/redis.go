// Package cache provides Redis access: a key-value store driver for the
// data services and token-bucket rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces data-service keys so they never collide
// with rate-limit buckets in the same database.
const DefaultKeyPrefix = "studio:kv:"

// Cache is a Redis-backed store and rate limiter.
type Cache struct {
	client *redis.Client
	prefix string
}

// Option adjusts how New connects.
type Option func(*options)

type options struct {
	prefix   string
	poolSize int
	minIdle  int
}

// WithKeyPrefix stores data-service keys under prefix instead of
// DefaultKeyPrefix. An empty prefix is ignored.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithPoolSize sets the connection pool size.
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	o := options{prefix: DefaultKeyPrefix, poolSize: 10, minIdle: 2}
	for _, opt := range opts {
		opt(&o)
	}

	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpt.PoolSize = o.poolSize
	redisOpt.MinIdleConns = min(o.minIdle, o.poolSize)
	redisOpt.PoolTimeout = 4 * time.Second
	redisOpt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(redisOpt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client, prefix: o.prefix}, nil
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for test cleanup.
func (c *Cache) Client() *redis.Client {
	return c.client
}
