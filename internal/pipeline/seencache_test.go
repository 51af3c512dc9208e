package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenCacheMarkAndSeen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewSeenCache(client, time.Minute)
	ctx := context.Background()

	assert.False(t, cache.Seen(ctx, "abc123"))
	cache.Mark(ctx, "abc123")
	assert.True(t, cache.Seen(ctx, "abc123"))
	assert.False(t, cache.Seen(ctx, "def456"))
}

func TestSeenCacheExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewSeenCache(client, time.Minute)
	ctx := context.Background()

	cache.Mark(ctx, "abc123")
	mr.FastForward(2 * time.Minute)
	assert.False(t, cache.Seen(ctx, "abc123"))
}

func TestSeenCacheNilSafe(t *testing.T) {
	var cache *SeenCache
	ctx := context.Background()

	// A disabled cache degrades to a permanent miss
	assert.False(t, cache.Seen(ctx, "abc123"))
	cache.Mark(ctx, "abc123")
}

func TestSeenCacheRedisDownDegradesToMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewSeenCache(client, time.Minute)
	ctx := context.Background()
	cache.Mark(ctx, "abc123")

	mr.Close()
	assert.False(t, cache.Seen(ctx, "abc123"))
}
