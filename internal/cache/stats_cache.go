package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yakoovad/babylog/internal/model"
)

// StatsCache keeps computed daily stats in redis. Every activity write bumps a
// per-baby version counter, which orphans all previously cached entries.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func versionKey(babyID string) string {
	return fmt.Sprintf("stats:ver:%s", babyID)
}

func statsKey(babyID string, version int64, day string, days int) string {
	return fmt.Sprintf("stats:%s:v%d:%s:%d", babyID, version, day, days)
}

func (c *StatsCache) version(ctx context.Context, babyID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(babyID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get stats version: %w", err)
	}
	return v, nil
}

// Get returns the cached stats for the window of days ending on day, and the
// cache version they were looked up under. The bool is false on a cache miss.
// A caller filling a miss passes that version to Set, so results computed
// across a concurrent Invalidate are stored under a version nobody reads.
func (c *StatsCache) Get(ctx context.Context, babyID, day string, days int) ([]*model.DailyStats, int64, bool, error) {
	v, err := c.version(ctx, babyID)
	if err != nil {
		return nil, 0, false, err
	}

	val, err := c.client.Get(ctx, statsKey(babyID, v, day, days)).Bytes()
	if err == redis.Nil {
		return nil, v, false, nil
	}
	if err != nil {
		return nil, v, false, fmt.Errorf("failed to get cached stats: %w", err)
	}

	var stats []*model.DailyStats
	if err := json.Unmarshal(val, &stats); err != nil {
		return nil, v, false, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	return stats, v, true, nil
}

// Set stores stats under version, the value Get returned before they were computed.
func (c *StatsCache) Set(ctx context.Context, babyID string, version int64, day string, days int, stats []*model.DailyStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := c.client.Set(ctx, statsKey(babyID, version, day, days), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached stats: %w", err)
	}
	return nil
}

// Invalidate drops every cached window of babyID.
func (c *StatsCache) Invalidate(ctx context.Context, babyID string) error {
	if err := c.client.Incr(ctx, versionKey(babyID)).Err(); err != nil {
		return fmt.Errorf("failed to bump stats version: %w", err)
	}
	return nil
}

// Ping is used by the health checker.
func (c *StatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
