// Package password hashes and verifies short-lived intake passcodes with slow,
// salted one-way functions.
//
// # Algorithms
//
//   - [Bcrypt] — default, cost 10. Output is the standard $2a$ modular crypt string.
//   - [Argon2] — argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both implement [Hasher]. Verification is constant-time for the digest
// comparison, and [Hasher.NeedsUpgrade] reports hashes produced with weaker
// parameters than the current configuration.
//
// # What this package must NOT do
//
//   - Store or retrieve passcodes. Callers supply plaintext and receive hashes.
//   - Import any other goIntake package.
//   - Log plaintext secrets or hash parameters at runtime.
package password
