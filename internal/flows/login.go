package flows

import (
	"context"
	"fmt"
)

// LoginInput is the flow-local login request.
type LoginInput struct {
	Email    string
	Password string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginUnconfirmed int
	PasswordUpgraded int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	EmailNotConfirmed  error
	StoreUnavailable   error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	UpgradeOnLogin bool

	NormalizeEmail func(string) (string, error)
	VerifyPassword func(plaintext, encoded string) bool
	VerifyDummy    func(plaintext string)
	NeedsRehash    func(encoded string) bool
	HashPassword   func(string) (string, error)
	IssueSession   func(context.Context, User) (string, error)
	OnUpgradeError func(context.Context, User, error)

	Store StoreFuncs

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates email and password. Unknown emails and wrong passwords
// fail identically, and both paths spend one password verification.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) (Session, error) {
	normalizeLoginDeps(&deps)

	if deps.Store.GetUserByEmail == nil || deps.VerifyPassword == nil || deps.IssueSession == nil {
		return Session{}, deps.Errors.EngineNotReady
	}

	email, err := deps.NormalizeEmail(in.Email)
	if err != nil {
		deps.VerifyDummy(in.Password)
		return Session{}, loginFailed(ctx, &deps, 0, "", "invalid_email")
	}

	user, err := deps.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if !deps.Store.IsNotFound(err) {
			mapped := deps.Store.MapStoreError(err)
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, 0, email, mapped, nil)
			return Session{}, mapped
		}
		deps.VerifyDummy(in.Password)
		return Session{}, loginFailed(ctx, &deps, 0, email, "unknown_email")
	}

	if !deps.VerifyPassword(in.Password, user.PasswordHash) {
		return Session{}, loginFailed(ctx, &deps, user.ID, email, "password_mismatch")
	}

	if !user.EmailConfirmed {
		deps.MetricInc(deps.Metrics.LoginUnconfirmed)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, email, deps.Errors.EmailNotConfirmed, nil)
		return Session{}, deps.Errors.EmailNotConfirmed
	}

	if deps.UpgradeOnLogin {
		upgradePasswordHash(ctx, &deps, user, in.Password)
	}

	token, err := deps.IssueSession(ctx, user)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, email, nil, nil)
	return Session{Token: token, User: user}, nil
}

func loginFailed(ctx context.Context, deps *LoginDeps, userID int64, email, reason string) error {
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, email, deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return deps.Errors.InvalidCredentials
}

// upgradePasswordHash swaps legacy or under-cost hashes for a fresh one. Failure
// is reported but never fails the login.
func upgradePasswordHash(ctx context.Context, deps *LoginDeps, user User, plaintext string) {
	if deps.NeedsRehash == nil || deps.HashPassword == nil || deps.Store.UpdatePasswordHash == nil {
		return
	}
	if !deps.NeedsRehash(user.PasswordHash) {
		return
	}

	hash, err := deps.HashPassword(plaintext)
	if err == nil {
		err = deps.Store.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		deps.OnUpgradeError(ctx, user, err)
		return
	}
	deps.MetricInc(deps.Metrics.PasswordUpgraded)
}

func normalizeLoginDeps(deps *LoginDeps) {
	normalizeCommon(&deps.MetricInc, &deps.EmitAudit, &deps.Store, deps.Errors.StoreUnavailable)
	if deps.NormalizeEmail == nil {
		deps.NormalizeEmail = func(s string) (string, error) { return s, nil }
	}
	if deps.VerifyDummy == nil {
		deps.VerifyDummy = func(string) {}
	}
	if deps.OnUpgradeError == nil {
		deps.OnUpgradeError = func(context.Context, User, error) {}
	}
}
