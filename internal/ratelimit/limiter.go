package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Limiter is a sliding-window log kept in a redis sorted set per key.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
	now    func() time.Time
}

func New(client *redis.Client, prefix string, limit int, period time.Duration) *Limiter {
	return &Limiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it fits the window.
// Rejected requests are not counted. A non-positive limit disables the limiter.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	now := l.now()
	k := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + uuid.NewString()
	windowStart := strconv.FormatInt(now.Add(-l.period).UnixMicro(), 10)

	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", "("+windowStart)
		card = pipe.ZCard(ctx, k)
		pipe.ZAdd(ctx, k, &redis.Z{Score: float64(now.UnixMicro()), Member: member})
		pipe.Expire(ctx, k, l.period)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update rate limit window: %w", err)
	}

	if card.Val() < int64(l.limit) {
		return true, nil
	}

	if err := l.client.ZRem(ctx, k, member).Err(); err != nil {
		return false, fmt.Errorf("failed to drop rejected request: %w", err)
	}
	return false, nil
}
