package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wegift/auth-service/pkg/database"
)

// RateLimitResult describes the state of a key's window after a request
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is a sliding window log kept in a Redis sorted set per key
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}

// Allow records the request when the window still has room. The request is
// added and counted in one MULTI so concurrent callers cannot both take the
// last slot.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := r.now()
	redisKey := rateLimitKey(key)
	windowStart := now.Add(-window).UnixMilli()
	member := uuid.NewString()

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, redisKey, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: member,
		})
		pipe.Expire(ctx, redisKey, window+time.Minute)
		card = pipe.ZCard(ctx, redisKey)
		oldest = pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
		return nil
	})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to record request: %w", err)
	}

	count := int(card.Val())
	if count <= limit {
		return RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - count,
		}, nil
	}

	// Rejected requests do not consume the window
	if err := r.redis.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to drop rejected request: %w", err)
	}

	result := RateLimitResult{Limit: limit, RetryAfter: window}
	if entries := oldest.Val(); len(entries) > 0 {
		oldestAt := time.UnixMilli(int64(entries[0].Score))
		result.RetryAfter = oldestAt.Add(window).Sub(now)
	}
	return result, nil
}
