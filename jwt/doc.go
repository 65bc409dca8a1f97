// Package jwt issues and validates the HS256 session tokens handed out by the
// authsystem engine after login and email confirmation.
//
// # Architecture boundaries
//
// Tokens are self-contained: the signature, issuer, audience, and expiry are
// checked without any store lookup. The package knows nothing about users; the
// subject is an opaque string chosen by the caller.
//
// # What this package must NOT do
//
//   - Accept any algorithm other than HS256.
//   - Decode claims before the MAC over the signing string has been verified.
//   - Mutate configuration after NewManager returns.
package jwt
