package rate

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRateLimited is returned when a key has exhausted its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("rate store unavailable")
)

// Policy is the rate-limit configuration surface. The Service exposes the
// policy; enforcement happens here.
type Policy struct {
	Enabled       bool
	Window        time.Duration
	MaxAttempts   int
	BlockDuration time.Duration
}

// DefaultPolicy returns the documented defaults: 5 attempts per 15 minute
// window, 1 hour block.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:       true,
		Window:        15 * time.Minute,
		MaxAttempts:   5,
		BlockDuration: time.Hour,
	}
}

// Limiter enforces a [Policy] over opaque keys. Keys are caller-chosen
// (lowercased email, client IP, session id).
type Limiter interface {
	// Check reports whether the key may attempt. Returns ErrRateLimited
	// while the key is blocked.
	Check(ctx context.Context, key string) error
	// Fail records a failed attempt and blocks the key once the budget is
	// exhausted.
	Fail(ctx context.Context, key string) error
	// Reset clears counters and any block for the key. Called after a
	// successful attempt.
	Reset(ctx context.Context, key string) error
	// Attempts reports the failed-attempt count in the current window.
	// Missing keys return zero.
	Attempts(ctx context.Context, key string) (int, error)
}
