// Package middleware exposes net/http adapters for token verification and
// requirement-guarded authorization built on top of authkit.Service.
//
// # Guards
//
//   - [Authenticate] — reads the bearer token, verifies it, and injects the
//     verification result into the request context. Unauthenticated requests
//     get 401.
//   - [Require] — Authenticate plus a requirement set (roles, permissions,
//     resource, requireAll). Authenticated-but-unauthorized requests get 403.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Service calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Service.VerifyToken and Service.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Service).
//   - Make authorization decisions beyond pass/reject from the Service.
//   - Write response bodies beyond the plain status text.
package middleware
