// Package ratelimit provides Redis-backed fixed-window counters shared by all
// instances of the service.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis failures so callers can decide to fail open.
var ErrRedisUnavailable = errors.New("rate limiter redis unavailable")

// RedisLimiter allows at most Limit events per Window for each key.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter creates a limiter. A non-positive limit disables limiting.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{redis: client, prefix: prefix, limit: int64(limit), window: window}
}

// Allow records one event for key and reports whether it fits the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	redisKey := l.prefix + ":" + key
	var incr *redis.IntCmd
	// INCR and EXPIRE NX commit together; NX also re-arms a counter that lost its TTL.
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val() <= l.limit, nil
}
