// Package prometheus renders authkit metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts an [authkit.Service] and exposes an [http.Handler]
// that renders every counter and histogram the engine records. Counter names
// are prefixed authkit_*_total; the single histogram is
// authkit_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the
//     Handler where they want it.
//   - Mutate engine state.
package prometheus
