// Package redis caches public tracking snapshots. The tracking endpoint is
// unauthenticated and can be polled aggressively, so hits are served from a
// short-lived cache instead of the orders table.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ovenlight/pizzatrack/internal/domain/order"
)

// TrackingCache stores rendered tracking payloads keyed by order number.
type TrackingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrackingCache creates a cache around an existing redis client. A zero
// ttl disables expiry, which the tracking endpoint should never want; the
// caller is expected to pass a few seconds.
func NewTrackingCache(client *redis.Client, ttl time.Duration) *TrackingCache {
	return &TrackingCache{client: client, ttl: ttl}
}

// NewClient dials a redis server from a URL like redis://host:6379/0.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func trackingKey(number string) string {
	return "tracking:" + number
}

// Get returns the cached tracking payload for an order number, or nil on a
// miss. Cache errors are returned so the caller can decide to fall through.
func (c *TrackingCache) Get(ctx context.Context, number string) (*order.TrackingInfo, error) {
	raw, err := c.client.Get(ctx, trackingKey(number)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tracking cache: %w", err)
	}
	var info order.TrackingInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decoding tracking cache entry: %w", err)
	}
	return &info, nil
}

// Set stores a tracking payload with the configured TTL.
func (c *TrackingCache) Set(ctx context.Context, info *order.TrackingInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding tracking cache entry: %w", err)
	}
	if err := c.client.Set(ctx, trackingKey(info.OrderNumber), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing tracking cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload for an order number. Called after a
// status transition so pollers see the new state immediately.
func (c *TrackingCache) Invalidate(ctx context.Context, number string) error {
	if err := c.client.Del(ctx, trackingKey(number)).Err(); err != nil {
		return fmt.Errorf("invalidating tracking cache: %w", err)
	}
	return nil
}
