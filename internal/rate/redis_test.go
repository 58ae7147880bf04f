package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, testPolicy()), mr
}

func TestRedisLimiterBudget(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Check(ctx, "a@b.co"); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := l.Fail(ctx, "a@b.co"); err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
	}

	// Third failure exhausts the budget and plants the block.
	if err := l.Fail(ctx, "a@b.co"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Check(ctx, "a@b.co"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected blocked check, got %v", err)
	}
	if err := l.Check(ctx, "other@b.co"); err != nil {
		t.Fatalf("other key: %v", err)
	}
}

func TestRedisLimiterBlockExpiry(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.Fail(ctx, "a@b.co")
	}
	if err := l.Check(ctx, "a@b.co"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected block, got %v", err)
	}

	// Window lapses but the block key outlives it.
	mr.FastForward(16 * time.Minute)
	if err := l.Check(ctx, "a@b.co"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("block must persist past the window: %v", err)
	}

	mr.FastForward(time.Hour)
	if err := l.Check(ctx, "a@b.co"); err != nil {
		t.Fatalf("block must lift after block duration: %v", err)
	}
}

func TestRedisLimiterResetAndAttempts(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	if n, err := l.Attempts(ctx, "missing"); err != nil || n != 0 {
		t.Fatalf("missing key: %d %v", n, err)
	}

	_ = l.Fail(ctx, "a@b.co")
	_ = l.Fail(ctx, "a@b.co")
	if n, _ := l.Attempts(ctx, "a@b.co"); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}

	if err := l.Reset(ctx, "a@b.co"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.Attempts(ctx, "a@b.co"); n != 0 {
		t.Fatalf("attempts after reset: %d", n)
	}
	if err := l.Check(ctx, "a@b.co"); err != nil {
		t.Fatalf("check after reset: %v", err)
	}
}

func TestRedisLimiterUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLimiter(client, testPolicy())
	mr.Close()

	if err := l.Check(context.Background(), "a@b.co"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
