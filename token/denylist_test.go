package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisDenylistTest(t *testing.T) (*RedisDenylist, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisDenylist(rdb, "akd"), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisDenylistRoundTrip(t *testing.T) {
	dl, _, done := newRedisDenylistTest(t)
	defer done()
	ctx := context.Background()

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if revoked {
		t.Fatal("unknown jti should not be revoked")
	}

	if err := dl.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	revoked, err = dl.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if !revoked {
		t.Fatal("expected jti to be revoked")
	}
}

func TestRedisDenylistEntriesExpire(t *testing.T) {
	dl, mr, done := newRedisDenylistTest(t)
	defer done()
	ctx := context.Background()

	if err := dl.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if revoked {
		t.Fatal("expected denylist entry to expire with the token")
	}
}

func TestMemoryDenylistExpiry(t *testing.T) {
	dl := NewMemoryDenylist()
	ctx := context.Background()

	if err := dl.Revoke(ctx, "jti-1", 10*time.Millisecond); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if revoked {
		t.Fatal("expected entry to lapse after its TTL")
	}
}
