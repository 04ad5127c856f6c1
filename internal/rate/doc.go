// Package rate provides the in-process admission primitives used by the intake
// gateway.
//
// # Window semantics
//
// [Limiter] is a sliding-window log: each identity keeps the timestamps of its
// admitted requests inside the trailing window. Entries are pruned lazily on the
// next check for that identity, never by a background sweeper. A rejected call
// is not recorded.
//
// [Throttle] is a single token bucket shared by all callers, used to bound
// credential issuance.
//
// # What this package must NOT do
//
//   - Persist state or coordinate across processes.
//   - Be imported outside the goIntake module.
package rate
