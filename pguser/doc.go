// Package pguser persists account records in PostgreSQL.
//
// The Repository implements provider.UserRepository on top of database/sql
// with the pgx stdlib driver. Role assignments are stored denormalized as a
// JSONB document per account; the engine treats roles as an attribute of the
// principal, not as rows it joins against.
//
// # Architecture boundaries
//
//   - pguser depends on provider and rbac for the record shapes. It must not
//     import the root package or any other engine package.
//   - Callers own the *sql.DB lifecycle when they pass one in; Open owns it
//     when it creates one.
//
// # What this package must NOT do
//
//   - No password hashing or policy checks. Hashes arrive pre-computed.
//   - No caching. The session store is the hot path; user lookups go to the
//     database every time.
package pguser
