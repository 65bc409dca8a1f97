// Package middleware adapts authsystem session validation to net/http.
//
// [RequireSession] reads the Authorization header, calls
// Engine.ValidateSession, and injects the validated claims into the request
// context, where [ClaimsFromContext] finds them.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Touch the user store.
//   - Distinguish failure causes in the response; every rejection is the same 401.
package middleware
