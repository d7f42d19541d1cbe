package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestLimiter(window time.Duration, max int) (*memoryRequestLimiter, *time.Time) {
	l := NewRequestLimiter(window, max).(*memoryRequestLimiter)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestRequestLimiterWindow(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLimiter(time.Minute, 2)

	if !l.Allow(ctx, "reset:a") || !l.Allow(ctx, "reset:a") {
		t.Fatalf("expected first two requests to pass")
	}
	if l.Allow(ctx, "reset:a") {
		t.Fatalf("expected third request to be limited")
	}
	if !l.Allow(ctx, "reset:b") {
		t.Fatalf("expected independent keys")
	}

	*now = now.Add(time.Minute)
	if !l.Allow(ctx, "reset:a") {
		t.Fatalf("expected window to reset")
	}
}

func TestRequestLimiterEvictsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLimiter(time.Minute, 3)

	for _, key := range []string{"reset:a", "reset:b", "reset:c"} {
		l.Allow(ctx, key)
	}
	if len(l.counters) != 3 {
		t.Fatalf("expected 3 tracked keys, got %d", len(l.counters))
	}

	*now = now.Add(time.Minute + time.Second)
	l.Allow(ctx, "reset:d")
	if len(l.counters) != 1 {
		t.Fatalf("expected expired keys evicted, got %d tracked", len(l.counters))
	}
	if _, ok := l.counters["reset:d"]; !ok {
		t.Fatalf("expected only the fresh key to remain")
	}
}

func TestRequestLimiterCapsTrackedKeys(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLimiter(time.Minute, 3)
	l.maxKeys = 2

	if !l.Allow(ctx, "reset:a") || !l.Allow(ctx, "reset:b") {
		t.Fatalf("expected keys within capacity to pass")
	}
	if l.Allow(ctx, "reset:c") {
		t.Fatalf("expected new key rejected while at capacity")
	}
	if !l.Allow(ctx, "reset:a") {
		t.Fatalf("expected known key to keep counting at capacity")
	}

	*now = now.Add(2 * time.Minute)
	if !l.Allow(ctx, "reset:c") {
		t.Fatalf("expected capacity freed once windows expire")
	}
	if len(l.counters) != 1 {
		t.Fatalf("expected expired keys evicted, got %d tracked", len(l.counters))
	}
}

func TestRequestLimiterRejectsEmptyKey(t *testing.T) {
	if NewRequestLimiter(time.Minute, 3).Allow(context.Background(), "") {
		t.Fatalf("expected empty key to be rejected")
	}
}

func newRedisLimiter(t *testing.T, window time.Duration, max int) (RequestLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRequestLimiter(client, zap.NewNop(), "rl:", window, max), mr
}

func TestRedisRequestLimiterWindow(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, time.Minute, 2)

	if !l.Allow(ctx, "reset:a") || !l.Allow(ctx, "reset:a") {
		t.Fatalf("expected first two requests to pass")
	}
	if l.Allow(ctx, "reset:a") {
		t.Fatalf("expected third request to be limited")
	}
	if !l.Allow(ctx, "verify_email:a") {
		t.Fatalf("expected flows to be counted separately")
	}
	if ttl := mr.TTL("rl:reset:a"); ttl != time.Minute {
		t.Fatalf("expected window ttl of 1m, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if mr.Exists("rl:reset:a") {
		t.Fatalf("expected counter key to expire with its window")
	}
	if !l.Allow(ctx, "reset:a") {
		t.Fatalf("expected counter to reset after window")
	}
}

func TestRedisRequestLimiterRestoresMissingTTL(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, time.Minute, 5)

	if err := mr.Set("rl:reset:a", "1"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	if !l.Allow(ctx, "reset:a") {
		t.Fatalf("expected request to pass")
	}
	if ttl := mr.TTL("rl:reset:a"); ttl != time.Minute {
		t.Fatalf("expected ttl restored to 1m, got %v", ttl)
	}
}

func TestRedisRequestLimiterFailsOpen(t *testing.T) {
	l, mr := newRedisLimiter(t, time.Minute, 1)
	mr.SetError("ERR unavailable")

	if !l.Allow(context.Background(), "reset:a") {
		t.Fatalf("expected fail-open on redis errors")
	}
	if l.Allow(context.Background(), "") {
		t.Fatalf("expected empty key to be rejected")
	}
}

func TestNewRedisRequestLimiterNilClient(t *testing.T) {
	if NewRedisRequestLimiter(nil, nil, "rl:", time.Minute, 1) != nil {
		t.Fatalf("expected nil limiter without client")
	}
}
