package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docsentry/docsentry/pkg/logging"
)

const redisKeyPrefix = "docsentry:answer:"

var redisTracer trace.Tracer = otel.Tracer("docsentry.internal.cache")

// RedisCache stores entries in Redis with a server-side TTL, for
// deployments that share one cache across replicas. Capacity is left to
// the server's eviction policy.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache creates a cache over an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get looks up the query. Backend errors read as a miss.
func (c *RedisCache) Get(ctx context.Context, query string) (*Entry, bool) {
	ctx, span := redisTracer.Start(ctx, "cache.get")
	defer span.End()

	key := redisKeyPrefix + Fingerprint(query)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Error("cache read failed", "error", err, "key", key)
		}
		c.misses.Add(1)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Error("cache entry corrupt", "error", err, "key", key)
		c.client.Del(ctx, key)
		c.misses.Add(1)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false
	}

	c.hits.Add(1)
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return &entry, true
}

// Set stores the entry with the configured TTL. Backend errors are
// logged and the write is dropped.
func (c *RedisCache) Set(ctx context.Context, query string, entry Entry) {
	ctx, span := redisTracer.Start(ctx, "cache.set")
	defer span.End()

	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("cache entry marshal failed", "error", err)
		return
	}

	key := redisKeyPrefix + Fingerprint(query)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Error("cache write failed", "error", err, "key", key)
	}
}

// Stats reports local hit/miss counters and the server-side key count.
func (c *RedisCache) Stats() Stats {
	size := 0
	keys, err := c.client.Keys(context.Background(), redisKeyPrefix+"*").Result()
	if err == nil {
		size = len(keys)
	}

	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Size:    size,
		HitRate: hitRate(hits, misses),
	}
}

// Clear deletes every entry under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) {
	keys, err := c.client.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		c.logger.Error("cache clear failed", "error", err)
		return
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}
