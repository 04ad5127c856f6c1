// Package stores provides the typed credential and case report stores on top of
// internal/docstore.
//
// # Design
//
// A credential is one document in the "credentials" collection keyed by case
// id, holding the passcode hash, its status (active or used) and millisecond
// timestamps. Reports live in "reports", indexed by createdAt for ordered
// listing. The only status transition is active to used and it is always
// conditional: Deactivate runs a compare-and-set script, SaveAndDeactivate a
// guarded transaction that writes the report in the same step.
//
// # Architecture boundaries
//
// This package owns record encoding and maps docstore errors onto its own
// sentinels. It does NOT generate case ids, hash passcodes, or decide what a
// failed transition means to a caller. Those belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import goIntake or internal/flows.
//   - Store or log a plaintext passcode.
package stores
