// Package internal contains helpers that are private to authsystem, mainly
// secure random token generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - logging: slog setup with request id and trace correlation
//   - notify: bounded asynchronous notification dispatch
//
// # What this package must NOT do
//
//   - Export types that appear in the public authsystem API.
//   - Be imported by any package outside the authsystem module.
package internal
