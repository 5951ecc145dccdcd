package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/observability"
)

const dashboardCachePrefix = "dashboard:"

// DashboardCache stores rendered dashboard views in Redis. A nil client
// disables caching.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewDashboardCache constructs the dashboard cache.
func NewDashboardCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *DashboardCache {
	return &DashboardCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "dashboard_cache").Logger(),
	}
}

func (c *DashboardCache) get(ctx context.Context, view, key string, target interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}

	cached, err := c.client.Get(ctx, dashboardCachePrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to read dashboard cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed dashboard cache entry")
		return false
	}

	observability.DashboardCacheHits().WithLabelValues(view).Inc()
	return true
}

func (c *DashboardCache) set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, dashboardCachePrefix+key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to store dashboard cache")
	}
}

// Invalidate removes every cached dashboard view.
func (c *DashboardCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, dashboardCachePrefix+"*", 100).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return c.client.Del(ctx, keys...).Err()
}
