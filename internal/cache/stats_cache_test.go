package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/babylog/internal/model"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *StatsCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewStatsCache(client, time.Minute)
}

func sampleStats() []*model.DailyStats {
	temp := 37.5
	return []*model.DailyStats{
		{Date: "2025-03-09", FeedingCount: 7, FeedingAmountML: 840, SleepMinutes: 780, DiaperCount: 6},
		{Date: "2025-03-10", FeedingCount: 3, FeedingAmountML: 360, MaxTemperatureC: &temp},
	}
}

func TestStatsCache_Miss(t *testing.T) {
	_, c := setupTestRedis(t)

	stats, version, ok, err := c.Get(context.Background(), "baby-1", "2025-03-10", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, stats)
	assert.Equal(t, int64(0), version)
}

func TestStatsCache_SetGet(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "baby-1", 0, "2025-03-10", 2, sampleStats()))

	stats, _, ok, err := c.Get(ctx, "baby-1", "2025-03-10", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleStats(), stats)

	_, _, ok, err = c.Get(ctx, "baby-1", "2025-03-10", 7)
	require.NoError(t, err)
	assert.False(t, ok, "different window must miss")

	_, _, ok, err = c.Get(ctx, "baby-2", "2025-03-10", 2)
	require.NoError(t, err)
	assert.False(t, ok, "different baby must miss")
}

func TestStatsCache_Invalidate(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "baby-1", 0, "2025-03-10", 2, sampleStats()))
	require.NoError(t, c.Set(ctx, "baby-2", 0, "2025-03-10", 2, sampleStats()))
	require.NoError(t, c.Invalidate(ctx, "baby-1"))

	_, version, ok, err := c.Get(ctx, "baby-1", "2025-03-10", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), version)

	_, _, ok, err = c.Get(ctx, "baby-2", "2025-03-10", 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatsCache_InvalidateDuringFill(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	_, version, ok, err := c.Get(ctx, "baby-1", "2025-03-10", 2)
	require.NoError(t, err)
	require.False(t, ok)

	// an activity write lands while the stats are being computed
	require.NoError(t, c.Invalidate(ctx, "baby-1"))
	require.NoError(t, c.Set(ctx, "baby-1", version, "2025-03-10", 2, sampleStats()))

	_, _, ok, err = c.Get(ctx, "baby-1", "2025-03-10", 2)
	require.NoError(t, err)
	assert.False(t, ok, "stats computed before the write must not be served")
}

func TestStatsCache_Expires(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "baby-1", 0, "2025-03-10", 2, sampleStats()))
	mr.FastForward(2 * time.Minute)

	_, _, ok, err := c.Get(ctx, "baby-1", "2025-03-10", 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsCache_RedisDown(t *testing.T) {
	mr, c := setupTestRedis(t)
	mr.Close()

	_, _, _, err := c.Get(context.Background(), "baby-1", "2025-03-10", 2)
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(context.Background(), "baby-1"))
}
