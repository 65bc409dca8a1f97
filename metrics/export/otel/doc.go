// Package otel binds authsystem engine metrics to an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per flow
// (authsystem_login_total, authsystem_register_total, ...) whose series carry an
// outcome attribute, and one bucket gauge per histogram labelled with le.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
