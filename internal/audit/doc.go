// Package audit implements the in-process lifecycle event bus.
//
// # Components
//
//   - [Event] — structured lifecycle record with a ULID id, type, principal
//     and session ids, and outcome metadata.
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Bus] — buffered async fan-out to every subscribed sink.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide
// which events to emit — that responsibility belongs to the Service.
//
// # What this package must NOT do
//
//   - Persist events. The bus is in-process publish/subscribe only.
//   - Filter or suppress events based on business logic.
//   - Import authkit or any sibling internal package.
package audit
