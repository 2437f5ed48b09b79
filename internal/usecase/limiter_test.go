package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type stubCounter struct {
	counts     map[string]int64
	expires    map[string]time.Duration
	err        error
	expireErrs int
}

func (s *stubCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if s.err != nil {
		return redis.NewIntResult(0, s.err)
	}
	s.counts[key]++
	return redis.NewIntResult(s.counts[key], nil)
}

func (s *stubCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if s.expireErrs > 0 {
		s.expireErrs--
		return redis.NewBoolResult(false, errors.New("connection reset"))
	}
	s.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (s *stubCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	if ttl, ok := s.expires[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	counter := &stubCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
	limiter := newRedisLimiter(counter, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "user-1")
		if err != nil || !allowed {
			t.Fatalf("attempt %d: expected allowed, got %v %v", i+1, allowed, err)
		}
	}
	allowed, err := limiter.Allow(ctx, "user-1")
	if err != nil || allowed {
		t.Fatalf("expected third attempt to be limited, got %v %v", allowed, err)
	}
	if allowed, _ := limiter.Allow(ctx, "user-2"); !allowed {
		t.Fatal("limit must be per subject")
	}
	if counter.expires["hasface:uploads:user-1"] != time.Minute {
		t.Fatalf("expected window to be set once, got %v", counter.expires)
	}
}

func TestRedisLimiterRestoresWindowAfterFailedExpire(t *testing.T) {
	counter := &stubCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}, expireErrs: 1}
	limiter := newRedisLimiter(counter, 2, time.Minute)
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "user-1"); err == nil {
		t.Fatal("expected the failed EXPIRE to be reported")
	}
	if _, ok := counter.expires["hasface:uploads:user-1"]; ok {
		t.Fatal("window must not be set yet")
	}

	allowed, err := limiter.Allow(ctx, "user-1")
	if err != nil || !allowed {
		t.Fatalf("expected second attempt to be allowed, got %v %v", allowed, err)
	}
	if counter.expires["hasface:uploads:user-1"] != time.Minute {
		t.Fatalf("expected window to be restored, got %v", counter.expires)
	}
}

func TestRedisLimiterPropagatesErrors(t *testing.T) {
	limiter := newRedisLimiter(&stubCounter{err: errors.New("redis down")}, 2, time.Minute)
	if _, err := limiter.Allow(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisLimiter(client, 1, time.Minute)
	if allowed, err := limiter.Allow(ctx, "user-1"); err != nil || !allowed {
		t.Fatalf("expected first upload to be allowed, got %v %v", allowed, err)
	}
	if allowed, err := limiter.Allow(ctx, "user-1"); err != nil || allowed {
		t.Fatalf("expected second upload to be limited, got %v %v", allowed, err)
	}
	if ttl := mr.TTL("hasface:uploads:user-1"); ttl != time.Minute {
		t.Fatalf("unexpected window ttl %s", ttl)
	}

	mr.FastForward(time.Minute)
	if allowed, err := limiter.Allow(ctx, "user-1"); err != nil || !allowed {
		t.Fatalf("expected upload after the window to be allowed, got %v %v", allowed, err)
	}
}

func TestRedisLimiterRepairsCounterWithoutTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	key := "hasface:uploads:user-1"
	if err := mr.Set(key, "5"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	limiter := NewRedisLimiter(client, 3, time.Minute)
	if allowed, err := limiter.Allow(ctx, "user-1"); err != nil || allowed {
		t.Fatalf("expected over-limit counter to be limited, got %v %v", allowed, err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected window to be restored, got ttl %s", ttl)
	}

	mr.FastForward(time.Minute)
	if allowed, err := limiter.Allow(ctx, "user-1"); err != nil || !allowed {
		t.Fatalf("expected subject to be allowed after the window, got %v %v", allowed, err)
	}
}
