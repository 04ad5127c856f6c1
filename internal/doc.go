// Package internal contains helpers private to goIntake: case id and
// passcode generation from crypto/rand.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - docstore: document collections on Redis hashes with ordered indexes
//   - flows: pure-function orchestrators for every Engine operation
//   - rate: in-memory sliding window and issuance token bucket
//   - security: security posture report
//   - stores: credential and report records on top of docstore
//   - server, observability, config, cmd: the goIntake service binary
//
// # What this package must NOT do
//
//   - Export types that appear in the public goIntake API.
//   - Be imported by any package outside the goIntake module.
package internal
