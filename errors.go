package authsystem

import (
	"errors"
	"strings"
)

var (
	// ErrEmailTaken is returned by Register when the email already belongs to a record.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWeakPassword is matched by every *WeakPasswordError.
	ErrWeakPassword = errors.New("password does not meet strength policy")
	// ErrInvalidCredentials is returned by Login for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotConfirmed is returned by Login once credentials are valid but the
	// email address has not been confirmed yet.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrInvalidToken is returned when a confirmation token matches no record.
	ErrInvalidToken = errors.New("invalid confirmation token")
	// ErrExpiredToken is returned when a confirmation token is past its expiry.
	ErrExpiredToken = errors.New("confirmation token expired")
	// ErrAlreadyConfirmed is returned by ResendConfirmation for confirmed accounts.
	ErrAlreadyConfirmed = errors.New("email already confirmed")
	// ErrStoreUnavailable wraps every user store failure other than a unique email
	// conflict or a missing record.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrUnauthorized is returned for a missing, malformed, forged or expired session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned by profile operations when a validated session points at
	// a record that no longer exists.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidName is returned when a display name falls outside the configured length.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidEmail is returned when an email is empty or too long after normalization.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrEngineNotReady is returned when an Engine was not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Store-facing sentinels. UserStore implementations return (or wrap) these so the
// engine can tell conflicts and misses apart from outages.
var (
	ErrRecordNotFound = errors.New("user record not found")
	ErrDuplicateEmail = errors.New("duplicate user email")
)

// WeakPasswordError lists every password rule the candidate failed.
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	if e == nil || len(e.Reasons) == 0 {
		return ErrWeakPassword.Error()
	}
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Reasons, "; ")
}

// Is lets errors.Is(err, ErrWeakPassword) match.
func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}

// WeakPasswordReasons extracts the failed rules from err, or nil when err is not a
// password policy failure.
func WeakPasswordReasons(err error) []string {
	var weak *WeakPasswordError
	if errors.As(err, &weak) {
		out := make([]string, len(weak.Reasons))
		copy(out, weak.Reasons)
		return out
	}
	return nil
}
