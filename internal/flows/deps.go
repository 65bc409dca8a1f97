package flows

import (
	"context"
	"time"
)

// User is the flow-local account model.
type User struct {
	ID                         int64
	Name                       string
	Email                      string
	PasswordHash               string
	CreatedAt                  time.Time
	EmailConfirmed             bool
	ConfirmationToken          *string
	ConfirmationTokenExpiresAt *time.Time
}

// NewUser is the flow-local create payload.
type NewUser struct {
	Name                       string
	Email                      string
	PasswordHash               string
	CreatedAt                  time.Time
	ConfirmationToken          string
	ConfirmationTokenExpiresAt time.Time
}

// Session is an issued session token for a user.
type Session struct {
	Token string
	User  User
}

// AuditFunc matches Engine.emitAudit.
type AuditFunc func(ctx context.Context, event string, success bool, userID int64, email string, err error, metadata func() map[string]string)

// StoreFuncs are the user store operations shared by the flows. The error
// classifiers let flows tell misses and conflicts apart from outages without
// knowing the host sentinels.
type StoreFuncs struct {
	GetUserByID                func(context.Context, int64) (User, error)
	GetUserByEmail             func(context.Context, string) (User, error)
	GetUserByConfirmationToken func(context.Context, string) (User, error)
	CreateUser                 func(context.Context, NewUser) (User, error)
	SetConfirmationToken       func(context.Context, int64, string, time.Time) error
	MarkEmailConfirmed         func(context.Context, int64, string) (User, error)
	UpdateName                 func(context.Context, int64, string) (User, error)
	UpdatePasswordHash         func(context.Context, int64, string) error

	IsNotFound    func(error) bool
	IsDuplicate   func(error) bool
	MapStoreError func(error) error
}

// EnqueueFunc hands a confirmation notification to the async dispatcher. It must
// not block and reports whether the job was accepted.
type EnqueueFunc func(ctx context.Context, user User, token string) bool

func normalizeCommon(metricInc *func(int), emitAudit *AuditFunc, store *StoreFuncs, unavailable error) {
	if *metricInc == nil {
		*metricInc = func(int) {}
	}
	if *emitAudit == nil {
		*emitAudit = func(context.Context, string, bool, int64, string, error, func() map[string]string) {}
	}
	if store.IsNotFound == nil {
		store.IsNotFound = func(error) bool { return false }
	}
	if store.IsDuplicate == nil {
		store.IsDuplicate = func(error) bool { return false }
	}
	if store.MapStoreError == nil {
		store.MapStoreError = func(error) error { return unavailable }
	}
}
