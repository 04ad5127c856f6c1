// Package otel publishes goIntake engine metrics through OpenTelemetry.
//
// [New] registers an Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// [goIntake.Engine.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
