// Package authsystem implements username/password accounts with email
// confirmation and stateless HS256 session tokens.
//
// An account is created unconfirmed by [Engine.Register], which queues a
// confirmation email. [Engine.ConfirmEmail] consumes the emailed token and signs
// the owner in. [Engine.Login] only succeeds for confirmed accounts.
// [Engine.ValidateSession] turns a bearer token into [SessionClaims] without a
// store round-trip, and the profile operations act on those claims.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// authsystem is the public surface. It exposes [Engine], [Builder], [Config], the
// [UserStore] and [Notifier] contracts, and value types. Flow orchestration,
// notification and audit dispatch live under internal/ and are never exported.
// Storage backends live in store/ and depend on this package, never the reverse.
//
// # What this package must NOT do
//
//   - Return a password hash or confirmation token through any Result.
//   - Let an unknown email and a wrong password produce different outcomes on Login.
//   - Block a request on notification delivery.
//   - Import any sub-package that re-imports authsystem (no import cycles).
//
// # Performance contract
//
// ValidateSession is the hot path: one HMAC and a claims decode, no I/O.
// Register and Login each spend one Argon2id computation, sized by the
// configured hash cost. Every other operation is bounded by store round-trips.
package authsystem
