// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunIssue, RunValidate, RunFinalize, etc.) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. Tests drive them with stub functions; the Engine stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential and report stores, the
// passcode hasher, the session token signer, audit and metrics. They do NOT own
// any of these resources. Ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goIntake (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
//   - See a plaintext passcode outside RunIssue and RunValidate.
package flows
