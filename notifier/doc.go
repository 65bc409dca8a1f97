// Package notifier holds authsystem.Notifier implementations.
//
// [LinkLogger] writes the confirmation or reset link to a slog.Logger instead of
// sending mail. Calls arrive on the engine's notification workers, never on the
// request path.
package notifier
