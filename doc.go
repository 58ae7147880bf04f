// Package authkit provides an authentication and authorization engine with
// HMAC-signed JWT access tokens, refresh-token session management, bcrypt
// password handling with strength scoring, and role/permission-based access
// control.
//
// The package is designed for concurrent server workloads: Service methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Service], [Builder], [Config],
// and value types (AuthResult, VerifyResult, MetricsSnapshot, etc.). Domain
// mechanics live in the sub-packages — token, session, password, rbac,
// provider — and internal coordination (event bus, rate limiting) under
// internal/.
//
// # What this package must NOT do
//
//   - Render pages, write cookies, or route HTTP. The web layer owns
//     transport; middleware/ offers optional net/http glue.
//   - Talk to the user database directly — persistence goes through the
//     [UserRepository] contract.
//   - Import any sub-package that re-imports authkit (no import cycles).
//
// # Error contract
//
// Every Service method that fails returns a tagged [*Error] carrying one of
// the sixteen taxonomy codes. VerifyToken is the exception: verification
// failures come back as an unauthenticated [VerifyResult], never an error.
package authkit
