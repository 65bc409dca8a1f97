// Package httpapi exposes the authsystem engine over JSON HTTP.
//
// Routes:
//
//	POST /api/auth/register              {name, email, password}
//	POST /api/auth/login                 {email, password}
//	POST /api/auth/confirm-email         {token}
//	POST /api/auth/resend-confirmation   {email}
//	GET  /api/user/profile               bearer session token
//	PUT  /api/user/profile               bearer session token, {name}
//	GET  /healthz
//	GET  /metrics                        when Options.Metrics is set
//
// Account routes answer with the envelope
// {success, message, token?, user?, errors?}. Profile routes answer with the
// public user view on success and {success:false, message} otherwise.
//
// # What this package must NOT do
//
//   - Decide account semantics. Every rule lives in the engine; handlers only
//     decode, validate shape, and map errors to status codes.
//   - Echo internal error text to clients.
package httpapi
