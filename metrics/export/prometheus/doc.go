// Package prometheus exposes goIntake engine metrics as a client_golang
// [prometheus.Collector].
//
// Counter names are gointake_*_total; the single histogram is
// gointake_validate_latency_seconds. Values are read from
// [goIntake.Engine.MetricsSnapshot] on every scrape.
//
// # What this package must NOT do
//
//   - Register on the global Prometheus registry. Callers register the
//     Collector or mount [Collector.Handler].
//   - Mutate engine state.
package prometheus
