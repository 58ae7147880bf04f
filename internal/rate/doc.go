// Package rate implements fixed-window attempt limiting for login and
// refresh.
//
// # Components
//
//   - [Policy] — the configuration surface exposed to callers: window,
//     attempt budget, block duration.
//   - [Limiter] — the enforcement contract.
//   - [MemoryLimiter] — per-key token buckets for single-process deployments.
//   - [RedisLimiter] — shared counters for multi-instance deployments.
//
// # Architecture boundaries
//
// This package owns counting and blocking. Which keys to count (email, IP,
// session id) is the Service's choice.
//
// # What this package must NOT do
//
//   - Look accounts up or reveal account existence through timing.
//   - Import authkit or any sibling internal package.
package rate
