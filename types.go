package authsystem

import (
	"context"
	"time"
)

// UserRecord is the persisted account. ConfirmationToken and
// ConfirmationTokenExpiresAt are either both set or both nil.
type UserRecord struct {
	ID                         int64
	Name                       string
	Email                      string
	PasswordHash               string
	CreatedAt                  time.Time
	EmailConfirmed             bool
	ConfirmationToken          *string
	ConfirmationTokenExpiresAt *time.Time
}

// HasPendingConfirmation reports whether a confirmation token is outstanding.
func (u UserRecord) HasPendingConfirmation() bool {
	return u.ConfirmationToken != nil && u.ConfirmationTokenExpiresAt != nil
}

// Public returns the client-safe view of the record.
func (u UserRecord) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is the subset of a UserRecord returned to clients. It never carries the
// password hash or confirmation token.
type PublicUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUserInput is passed to UserStore.CreateUser. The store assigns the ID.
type CreateUserInput struct {
	Name                       string
	Email                      string
	PasswordHash               string
	CreatedAt                  time.Time
	ConfirmationToken          string
	ConfirmationTokenExpiresAt time.Time
}

// UserStore persists user records. Every mutating method must be atomic for the
// record it touches.
//
// Implementations return ErrDuplicateEmail (possibly wrapped) when CreateUser hits
// the unique email constraint and ErrRecordNotFound when a lookup misses. Any other
// error is treated as an outage.
//
// Emails passed in are already normalized by the engine.
type UserStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	GetUserByID(ctx context.Context, id int64) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByConfirmationToken(ctx context.Context, token string) (UserRecord, error)

	// SetConfirmationToken replaces any outstanding token and expiry.
	SetConfirmationToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	// MarkEmailConfirmed sets EmailConfirmed and clears the token pair, but only while
	// token is still the record's outstanding token. Otherwise it returns
	// ErrRecordNotFound.
	MarkEmailConfirmed(ctx context.Context, id int64, token string) (UserRecord, error)
	UpdateName(ctx context.Context, id int64, name string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

// Notifier delivers account emails. Calls happen off the request path, on the
// notification dispatcher's workers.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, email, name, token string) error
	NotifyPasswordReset(ctx context.Context, email, name, token string) error
}

// SessionClaims is the identity carried by a validated session token.
type SessionClaims struct {
	UserID    int64
	Name      string
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RegisterInput is the Register request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the Login request.
type LoginInput struct {
	Email    string
	Password string
}

// Result is the uniform outcome of the account operations. Token is only set when
// the operation authenticates the caller.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token,omitempty"`
	User    *PublicUser `json:"user,omitempty"`
}
