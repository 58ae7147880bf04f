package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// purgeThreshold bounds the entry map before stale keys get swept.
const purgeThreshold = 4096

type entry struct {
	bucket       *rate.Limiter
	blockedUntil time.Time
	lastSeen     time.Time
}

// MemoryLimiter enforces the policy with one token bucket per key. The
// bucket refills the attempt budget continuously over the window, which
// approximates the fixed window without storing timestamps per attempt.
type MemoryLimiter struct {
	policy Policy

	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

// NewMemoryLimiter describes the newmemorylimiter operation and its
// observable behavior.
func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	return &MemoryLimiter{
		policy:  policy,
		entries: map[string]*entry{},
		now:     time.Now,
	}
}

// Check describes the check operation and its observable behavior.
//
// Check may return an error when input validation, dependency calls, or
// security checks fail.
func (m *MemoryLimiter) Check(ctx context.Context, key string) error {
	if !m.policy.Enabled {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	now := m.now()
	e.lastSeen = now
	if now.Before(e.blockedUntil) {
		return ErrRateLimited
	}
	if e.bucket.TokensAt(now) < 1 {
		return ErrRateLimited
	}
	return nil
}

// Fail describes the fail operation and its observable behavior.
//
// Fail may return an error when input validation, dependency calls, or
// security checks fail.
func (m *MemoryLimiter) Fail(ctx context.Context, key string) error {
	if !m.policy.Enabled {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{bucket: m.newBucket()}
		m.entries[key] = e
		m.purgeLocked(now)
	}
	e.lastSeen = now
	if !e.bucket.AllowN(now, 1) {
		e.blockedUntil = now.Add(m.policy.BlockDuration)
		return ErrRateLimited
	}
	return nil
}

// Reset describes the reset operation and its observable behavior.
func (m *MemoryLimiter) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Attempts describes the attempts operation and its observable behavior.
func (m *MemoryLimiter) Attempts(ctx context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return 0, nil
	}
	used := m.policy.MaxAttempts - int(e.bucket.TokensAt(m.now()))
	if used < 0 {
		used = 0
	}
	return used, nil
}

func (m *MemoryLimiter) newBucket() *rate.Limiter {
	interval := m.policy.Window / time.Duration(m.policy.MaxAttempts)
	return rate.NewLimiter(rate.Every(interval), m.policy.MaxAttempts)
}

// purgeLocked sweeps idle, unblocked keys once the map grows past the
// threshold. Called with the lock held.
func (m *MemoryLimiter) purgeLocked(now time.Time) {
	if len(m.entries) < purgeThreshold {
		return
	}
	idle := m.policy.Window + m.policy.BlockDuration
	for key, e := range m.entries {
		if now.Before(e.blockedUntil) {
			continue
		}
		if now.Sub(e.lastSeen) > idle {
			delete(m.entries, key)
		}
	}
}
