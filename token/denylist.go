package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token IDs until their natural expiry. Entries
// only need to outlive the token they block, so every implementation takes
// a TTL.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryDenylist is a process-local [Denylist]. Expired entries are purged
// lazily on writes.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryDenylist describes the newmemorydenylist operation and its observable behavior.
//
// NewMemoryDenylist does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time)}
}

// Revoke describes the revoke operation and its observable behavior.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
func (d *MemoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}

	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for id, deadline := range d.entries {
		if deadline.Before(now) {
			delete(d.entries, id)
		}
	}
	d.entries[jti] = now.Add(ttl)

	return nil
}

// IsRevoked describes the isrevoked operation and its observable behavior.
//
// IsRevoked may return an error when input validation, dependency calls, or security checks fail.
func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	deadline, ok := d.entries[jti]
	if !ok {
		return false, nil
	}
	if deadline.Before(time.Now()) {
		delete(d.entries, jti)
		return false, nil
	}
	return true, nil
}

// RedisDenylist is a [Denylist] shared across processes. Redis expires
// entries on its own, so revocations never need a sweep.
type RedisDenylist struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisDenylist describes the newredisdenylist operation and its observable behavior.
//
// NewRedisDenylist does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisDenylist(client redis.UniversalClient, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = "akd"
	}
	return &RedisDenylist{redis: client, prefix: prefix}
}

func (d *RedisDenylist) key(jti string) string {
	return d.prefix + ":" + jti
}

// Revoke describes the revoke operation and its observable behavior.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, d.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("denylist revoke: %w", err)
	}
	return nil
}

// IsRevoked describes the isrevoked operation and its observable behavior.
//
// IsRevoked may return an error when input validation, dependency calls, or security checks fail.
func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.redis.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist lookup: %w", err)
	}
	return n > 0, nil
}
