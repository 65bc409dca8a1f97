// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunConfirmEmail, etc.) accepts a
// typed dependency struct and returns results without side-effects beyond those
// dependencies. This keeps the Engine type thin and lets every branch be tested
// with plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user store, password hasher, token
// generator, session codec, notification queue, audit, and metrics. They do NOT
// own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authsystem (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
