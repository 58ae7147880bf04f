// Package internal contains helpers that are intentionally private to
// authkit.
//
// # Sub-packages
//
//   - audit — async lifecycle event bus (Bus + Sink implementations)
//   - rate — login rate limiting (in-memory token bucket and Redis fixed window)
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API other than through
//     root-package aliases.
//   - Be imported by any package outside the authkit module.
package internal
