// Package token issues and verifies the signed access and refresh tokens
// carried by authenticated requests.
//
// # Wire format
//
// Tokens are standard JWTs signed with HMAC-SHA256:
//
//	base64url(header).base64url(payload).base64url(signature)
//
// Access payloads carry sub, email, roles, perms, iat, exp and optional
// iss/aud/jti; refresh payloads carry sub, sid, iat, exp, jti only — a
// refresh token exists to mint a new access token for a still-valid session,
// nothing more.
//
// # Architecture boundaries
//
// The [Manager] is a pure transform over a signing secret: it holds no
// mutable state and is safe for concurrent use. Revocation is a
// defense-in-depth hook backed by a pluggable [Denylist]; session deletion
// remains the primary invalidation path.
//
// # What this package must NOT do
//
//   - Persist tokens or sessions.
//   - Accept tokens signed with any algorithm other than the configured one.
//   - Import any other authkit package.
package token
