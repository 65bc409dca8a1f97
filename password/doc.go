// Package password implements password hashing, verification and the registration
// strength policy.
//
// # Output format
//
// New hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.Verify] also accepts bcrypt hashes ($2a$, $2b$, $2y$) carried over from
// older deployments. [Hasher.NeedsRehash] flags those, and Argon2id hashes produced
// with weaker parameters, so the caller can re-hash on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other authsystem package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
