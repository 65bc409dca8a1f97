package authsystem

import "errors"

// Human-readable outcome messages carried in Result.Message and by the HTTP layer.
const (
	MsgRegistered          = "User registered. Check your email to confirm the account."
	MsgLoggedIn            = "Login successful."
	MsgEmailConfirmed      = "Email confirmed successfully."
	MsgConfirmationResent  = "Confirmation email sent again. Check your inbox."
	MsgConfirmationGeneric = "If the email is registered, you will receive a confirmation link."
	MsgProfileUpdated      = "Profile updated."

	MsgEmailTaken         = "This email is already registered."
	MsgWeakPassword       = "Password does not meet the strength requirements."
	MsgInvalidCredentials = "Invalid email or password."
	MsgEmailNotConfirmed  = "Please confirm your email before logging in. Check your inbox."
	MsgInvalidToken       = "Invalid confirmation token."
	MsgExpiredToken       = "Confirmation token expired. Request a new confirmation email."
	MsgAlreadyConfirmed   = "This email is already confirmed. You can log in."
	MsgStoreUnavailable   = "Service temporarily unavailable. Try again later."
	MsgUnauthorized       = "User not authenticated."
	MsgNotFound           = "User not found."
	MsgInvalidName        = "Name must be between 2 and 100 characters."
	MsgInvalidEmail       = "Email is invalid."
	MsgInternal           = "Unexpected error."
)

var errorMessages = []struct {
	err error
	msg string
}{
	{ErrEmailTaken, MsgEmailTaken},
	{ErrWeakPassword, MsgWeakPassword},
	{ErrInvalidCredentials, MsgInvalidCredentials},
	{ErrEmailNotConfirmed, MsgEmailNotConfirmed},
	{ErrInvalidToken, MsgInvalidToken},
	{ErrExpiredToken, MsgExpiredToken},
	{ErrAlreadyConfirmed, MsgAlreadyConfirmed},
	{ErrStoreUnavailable, MsgStoreUnavailable},
	{ErrUnauthorized, MsgUnauthorized},
	{ErrNotFound, MsgNotFound},
	{ErrInvalidName, MsgInvalidName},
	{ErrInvalidEmail, MsgInvalidEmail},
}

// MessageFor maps an engine error to its client-facing message. Unknown errors get a
// generic message so internal detail never reaches the caller.
func MessageFor(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return MsgInternal
}
