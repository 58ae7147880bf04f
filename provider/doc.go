// Package provider implements pluggable authentication strategies behind one
// common contract: authenticate, register, refresh, logout, verify.
//
// Two strategies ship with authkit. [Local] authenticates against a
// [UserRepository] using the password package. [OAuth] runs the OAuth2
// authorization-code flow against an external identity provider and maps the
// remote profile to a local principal with create-or-update semantics.
// [Factory] resolves named providers; Google, GitHub, and Microsoft presets
// bind the three OAuth endpoints and default scopes.
//
// Operations a strategy cannot meaningfully implement (for example token
// refresh on [Local], which is a pure JWT operation) return [ErrNotSupported]
// so the Service can fall back to its own token manager.
//
// # Architecture boundaries
//
// This package owns identity establishment only. Token minting, session
// creation, and event emission belong to the Service.
//
// # What this package must NOT do
//
//   - Mint or verify authkit JWTs — that is the token package's job.
//   - Persist sessions or emit audit events.
//   - Import any other authkit package except password and rbac.
package provider
