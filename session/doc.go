// Package session owns the server-held proof of a live login: creation,
// lookup, refresh, expiry, and the recurring cleanup sweep.
//
// # Validity
//
// A session is valid iff now < ExpiresAt AND now - LastActivityAt is within
// the configured inactivity window. Violating either bound invalidates the
// session lazily on the next lookup — reads never return stale sessions.
//
// # Stores
//
// [MemoryStore] is the reference implementation: two indexes (by session ID
// and by owning user ID) updated atomically under one lock, plus a cleanup
// timer owned by the store itself (started on construction, released by
// Stop). [RedisStore] serves multi-process deployments behind the same
// [Store] interface, delegating absolute expiry to Redis TTLs.
//
// # What this package must NOT do
//
//   - Mint or verify tokens — it stores their values opaquely.
//   - Emit lifecycle events directly; it exposes an eviction hook instead.
//   - Import any other authkit package.
package session
