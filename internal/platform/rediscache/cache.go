// Package rediscache implements the embedding cache collaborator on top of
// Redis. Cache outages degrade latency, never correctness: callers treat
// any cache error as a miss.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medforge/cardgen/internal/config"
	"github.com/medforge/cardgen/internal/embedding"
)

// dialTimeout bounds the initial connectivity probe.
const dialTimeout = 5 * time.Second

// Cache implements embedding.Cache over a Redis instance.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

var _ embedding.Cache = (*Cache)(nil)

// New connects to Redis and verifies connectivity with a ping.
func New(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "redis_cache")),
	}, nil
}

// Get implements embedding.Cache. A missing key returns
// embedding.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, embedding.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Set implements embedding.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements embedding.Cache. It reports whether the key was
// present.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := c.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return removed > 0, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
