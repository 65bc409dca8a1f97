// Package prometheus exposes authsystem engine metrics as a
// prometheus.Collector.
//
// Counter names are authsystem_*_total; the single histogram is
// authsystem_validate_latency_seconds. [Handler] serves them from a private
// registry.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
