package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements fixed-window limiting backed by a shared Redis
// instance, so the quota holds across multiple API replicas.
type RedisLimiter struct {
	client     *redis.Client
	windowSize time.Duration
	max        int
	prefix     string
	now        func() time.Time
}

// NewRedisLimiter builds a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, windowSize time.Duration, max int) *RedisLimiter {
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	if max <= 0 {
		max = 10
	}
	return &RedisLimiter{
		client:     client,
		windowSize: windowSize,
		max:        max,
		prefix:     "ratelimit",
		now:        time.Now,
	}
}

// Allow increments the counter for the key's current window bucket. The
// bucket key embeds the window index, so counts reset exactly at window
// boundaries.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.windowSize)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.windowSize+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit incr %s: %w", key, err)
	}

	return incr.Val() <= int64(l.max), nil
}
