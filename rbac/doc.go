// Package rbac evaluates role- and permission-based access control over a
// principal.
//
// Evaluation is pure: every predicate is a side-effect-free function of the
// principal's assigned roles, so the package holds no state and is trivially
// safe for concurrent use. A principal's effective permission set is the
// union of the permissions across its roles, de-duplicated by
// name:resource; a "*" resource matches any resource.
//
// [Context] bundles the predicates bound to one principal and one
// resource/action pair for ergonomic call-site checks. Contexts are
// ephemeral — build one per check and discard it.
//
// # What this package must NOT do
//
//   - Load or persist roles; callers supply resolved principals.
//   - Import any other authkit package.
package rbac
