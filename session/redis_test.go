package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, cfg Config) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "ak", cfg), mr
}

func TestRedisCreateAndFind(t *testing.T) {
	store, _ := newRedisStoreTest(t, Config{MaxAge: time.Hour})
	ctx := context.Background()

	sess, err := store.Create(ctx, &Session{
		UserID:       "u-1",
		RefreshToken: "rt-1",
		Snapshot:     Snapshot{Email: "a@x.com", Roles: []string{"user"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := store.FindByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.UserID != "u-1" || found.Snapshot.Email != "a@x.com" {
		t.Fatalf("unexpected session: %+v", found)
	}

	byToken, err := store.FindByRefreshToken(ctx, "rt-1")
	if err != nil {
		t.Fatalf("find by refresh: %v", err)
	}
	if byToken.ID != sess.ID {
		t.Fatalf("expected %s, got %s", sess.ID, byToken.ID)
	}
}

func TestRedisExpiryEvictsFromIndex(t *testing.T) {
	store, mr := newRedisStoreTest(t, Config{MaxAge: time.Minute})
	ctx := context.Background()

	sess, err := store.Create(ctx, &Session{UserID: "u-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.FindByID(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	evicted, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(evicted) != 1 || evicted[0].SessionID != sess.ID {
		t.Fatalf("expected one eviction for %s, got %v", sess.ID, evicted)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}

func TestRedisDeleteByUserID(t *testing.T) {
	store, _ := newRedisStoreTest(t, Config{MaxAge: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := store.Create(ctx, &Session{UserID: "u-1"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other, err := store.Create(ctx, &Session{UserID: "u-2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	count, err := store.DeleteByUserID(ctx, "u-1")
	if err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deletions, got %d", count)
	}

	if _, err := store.FindByID(ctx, other.ID); err != nil {
		t.Fatalf("unrelated session lost: %v", err)
	}
}

func TestRedisTouchKeepsTTL(t *testing.T) {
	store, mr := newRedisStoreTest(t, Config{MaxAge: time.Hour})
	ctx := context.Background()

	sess, err := store.Create(ctx, &Session{UserID: "u-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	before := mr.TTL(store.key(sess.ID))

	ok, err := store.Touch(ctx, sess.ID)
	if err != nil || !ok {
		t.Fatalf("touch: ok=%v err=%v", ok, err)
	}

	after := mr.TTL(store.key(sess.ID))
	if after > before {
		t.Fatalf("touch must not extend TTL: before=%v after=%v", before, after)
	}
}
