package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
	"github.com/wadjakorntonsri/shorturl/pkg/metrics"
	"github.com/wadjakorntonsri/shorturl/pkg/ports"
)

const keyPrefix = "shorturl:code:"

// RedisCache keeps URL records keyed by short code. Only fields needed to redirect
// are trusted from it; click_count may be stale.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewRedisClient(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: zap.L().With(zap.String("component", "RedisCache")),
	}
}

func (c *RedisCache) Get(ctx context.Context, code string) (*domain.URL, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Cache error", zap.Error(err), zap.String("short_code", code))
		}
		metrics.CacheMissesTotal.WithLabelValues("redis").Inc()
		return nil, false
	}

	var u domain.URL
	if err := json.Unmarshal(raw, &u); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", zap.Error(err), zap.String("short_code", code))
		metrics.CacheMissesTotal.WithLabelValues("redis").Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
	return &u, true
}

// entryTTL is the earlier of ttl and the time left until expiresAt. A non-positive ttl
// means no cap. ok is false when the record has already expired.
func entryTTL(ttl time.Duration, expiresAt *time.Time, now time.Time) (time.Duration, bool) {
	if expiresAt == nil {
		return ttl, true
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	if ttl <= 0 || remaining < ttl {
		return remaining, true
	}
	return ttl, true
}

// Set stores url until the earlier of the configured TTL and its expiry. Expired
// records are not cached.
func (c *RedisCache) Set(ctx context.Context, url *domain.URL) {
	ttl, ok := entryTTL(c.ttl, url.ExpiresAt, c.now())
	if !ok {
		return
	}

	raw, err := json.Marshal(url)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+url.ShortCode, raw, ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache URL", zap.Error(err), zap.String("short_code", url.ShortCode))
	}
}

func (c *RedisCache) Delete(ctx context.Context, code string) {
	if err := c.client.Del(ctx, keyPrefix+code).Err(); err != nil {
		c.logger.Warn("Failed to evict URL", zap.Error(err), zap.String("short_code", code))
	}
}

var _ ports.URLCache = (*RedisCache)(nil)
