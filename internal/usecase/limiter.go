package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrRateLimited is returned when a subject uploads more often than allowed.
var ErrRateLimited = errors.New("too many avatar uploads")

// UploadLimiter decides whether subject may upload another avatar.
type UploadLimiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}

// counter is the subset of *redis.Client used by RedisLimiter.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter allows limit uploads per subject in a fixed window.
type RedisLimiter struct {
	client counter
	limit  int64
	window time.Duration
}

// NewRedisLimiter constructs a Redis-backed fixed window limiter.
func NewRedisLimiter(client *redis.Client, limit int64, window time.Duration) *RedisLimiter {
	return newRedisLimiter(client, limit, window)
}

func newRedisLimiter(client counter, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow counts an upload attempt and reports whether it is within the limit.
// A counter left without a TTL, e.g. after a failed EXPIRE, gets its window
// set again on the next attempt.
func (l *RedisLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	key := "hasface:uploads:" + subject
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	expire := count == 1
	if !expire {
		ttl, err := l.client.TTL(ctx, key).Result()
		if err != nil {
			return false, err
		}
		// go-redis reports a key without expiry as -1ns
		expire = ttl == -1
	}
	if expire {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= l.limit, nil
}
