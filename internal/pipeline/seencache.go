package pipeline

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-sync/internal/pkg/logger"
)

// SeenCache is an optional Redis-backed prefilter of recently inserted
// event keys. It only saves insert round-trips on re-fetched windows;
// the event_key unique constraint remains the source of correctness, so
// every failure path here degrades to a cache miss.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeenCache creates a SeenCache with the given key TTL.
func NewSeenCache(client *redis.Client, ttl time.Duration) *SeenCache {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SeenCache{client: client, ttl: ttl}
}

func (c *SeenCache) redisKey(eventKey string) string {
	return "outreach-sync:seen:" + eventKey
}

// Seen reports whether the key was recently marked. Nil receiver and
// Redis errors both report false.
func (c *SeenCache) Seen(ctx context.Context, eventKey string) bool {
	if c == nil || c.client == nil {
		return false
	}
	n, err := c.client.Exists(ctx, c.redisKey(eventKey)).Result()
	if err != nil {
		logger.Debug("seen-cache lookup failed", "error", err.Error())
		return false
	}
	return n > 0
}

// Mark records the key with the configured TTL. Failures are logged and
// ignored.
func (c *SeenCache) Mark(ctx context.Context, eventKey string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, c.redisKey(eventKey), 1, c.ttl).Err(); err != nil {
		logger.Debug("seen-cache mark failed", "error", err.Error())
	}
}
