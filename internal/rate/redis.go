package rate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces the policy with shared fixed-window counters, so the
// budget holds across engine instances. Two keys per identifier: the window
// counter and an explicit block marker.
type RedisLimiter struct {
	client redis.UniversalClient
	policy Policy
	prefix string
}

// NewRedisLimiter describes the newredislimiter operation and its observable
// behavior.
func NewRedisLimiter(client redis.UniversalClient, policy Policy) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		policy: policy,
		prefix: "akr",
	}
}

func (r *RedisLimiter) counterKey(key string) string { return r.prefix + ":c:" + key }
func (r *RedisLimiter) blockKey(key string) string   { return r.prefix + ":b:" + key }

// Check describes the check operation and its observable behavior.
//
// Check may return an error when input validation, dependency calls, or
// security checks fail.
func (r *RedisLimiter) Check(ctx context.Context, key string) error {
	if !r.policy.Enabled {
		return nil
	}
	blocked, err := r.client.Exists(ctx, r.blockKey(key)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if blocked > 0 {
		return ErrRateLimited
	}

	count, err := r.client.Get(ctx, r.counterKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count >= int64(r.policy.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail describes the fail operation and its observable behavior.
//
// Fail may return an error when input validation, dependency calls, or
// security checks fail.
func (r *RedisLimiter) Fail(ctx context.Context, key string) error {
	if !r.policy.Enabled {
		return nil
	}
	count, err := r.client.Incr(ctx, r.counterKey(key)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// Fixed-window semantics: the TTL is set by the first hit only.
	if count == 1 {
		if err := r.client.Expire(ctx, r.counterKey(key), r.policy.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if count >= int64(r.policy.MaxAttempts) {
		if err := r.client.Set(ctx, r.blockKey(key), 1, r.policy.BlockDuration).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return ErrRateLimited
	}
	return nil
}

// Reset describes the reset operation and its observable behavior.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.counterKey(key), r.blockKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Attempts describes the attempts operation and its observable behavior.
// Missing keys return zero and do not reveal account existence.
func (r *RedisLimiter) Attempts(ctx context.Context, key string) (int, error) {
	count, err := r.client.Get(ctx, r.counterKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count < 0 {
		count = 0
	}
	return int(count), nil
}
