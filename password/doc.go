// Package password implements the password policy engine: hashing and
// verification, strength validation with scoring, and time-boxed reset tokens.
//
// # Output format
//
// Hashes are encoded in bcrypt modular-crypt format:
//
//	$2a$<cost>$<salt+digest>
//
// The format is self-describing — cost and salt live inside the encoded
// string — so verification survives later cost changes. [Hasher.NeedsRehash]
// reports whether a stored hash was produced with a weaker cost than the
// current configuration, letting callers re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing, strength validation, and reset-token issuance
// only. Single-use enforcement of reset tokens and account lookups are the
// Service's responsibility.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other authkit package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
