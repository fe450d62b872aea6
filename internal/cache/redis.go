// Package cache provides a Redis-backed cache for excerpt similarity
// queries, keyed by a hash of the query text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/config"
)

// ExcerptCache caches similarity search results with a TTL.
type ExcerptCache struct {
	client *redis.Client
	config config.CacheConfig
	logger *zap.Logger
	hits   int64
	misses int64
}

// Stats reports cache performance counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New creates a Redis-backed excerpt cache and verifies connectivity.
func New(cfg config.CacheConfig, logger *zap.Logger) (*ExcerptCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Excerpt cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("default_ttl", cfg.DefaultTTL))

	return &ExcerptCache{client: client, config: cfg, logger: logger}, nil
}

// Get returns the cached result for a query, unmarshalled into dest.
// The boolean reports a cache hit.
func (c *ExcerptCache) Get(ctx context.Context, query string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.key(query)).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return false, nil
	}
	if err != nil {
		atomic.AddInt64(&c.misses, 1)
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode failed: %w", err)
	}

	atomic.AddInt64(&c.hits, 1)
	return true, nil
}

// Set stores a query result under the configured TTL.
func (c *ExcerptCache) Set(ctx context.Context, query string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}
	return c.client.Set(ctx, c.key(query), data, c.config.DefaultTTL).Err()
}

// GetStats returns hit/miss counters.
func (c *ExcerptCache) GetStats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses

	stats := Stats{Hits: hits, Misses: misses}
	if total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Close releases the Redis client.
func (c *ExcerptCache) Close() error { return c.client.Close() }

func (c *ExcerptCache) key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return c.config.KeyPrefix + ":" + hex.EncodeToString(sum[:16])
}

func maskRedisURL(redisURL string) string {
	u, err := url.Parse(redisURL)
	if err != nil {
		return "<invalid-url>"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
