// Package goIntake issues one-time access credentials for anonymous legal
// intake sessions, validates them behind a sliding-window admission gate, and
// persists the case report that closes a session while retiring its
// credential.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goIntake is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([IssuedCredential], [Report], [MetricsSnapshot]). Flow
// orchestration, document storage on Redis, rate limiting and audit dispatch
// live under internal/ and are never exported.
//
// # Credential lifecycle
//
// A credential is created active, may be validated any number of times while
// active, and moves to used exactly once, either through
// [Engine.DeactivateCredential] or as part of [Engine.FinalizeReport]. A used
// credential never becomes active again. Only a slow salted hash of the
// passcode is stored.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Log. Observable events leave through the audit sink and metrics.
//   - Import any sub-package that re-imports goIntake.
package goIntake
