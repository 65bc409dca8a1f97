package flows

import (
	"context"
	"fmt"
	"time"
)

// ConfirmationMetrics carries metric IDs needed by the confirmation flows.
type ConfirmationMetrics struct {
	ConfirmSuccess      int
	ConfirmInvalidToken int
	ConfirmExpiredToken int
	ConfirmFailure      int
	ResendSuccess       int
	ResendUnknownEmail  int
	ResendAlreadyDone   int
	ResendFailure       int
}

// ConfirmationEvents carries audit event names used by the confirmation flows.
type ConfirmationEvents struct {
	ConfirmSuccess string
	ConfirmFailure string
	ResendRequest  string
}

// ConfirmationErrors carries host-level sentinel errors used by the confirmation flows.
type ConfirmationErrors struct {
	EngineNotReady   error
	InvalidToken     error
	ExpiredToken     error
	AlreadyConfirmed error
	StoreUnavailable error
}

// ConfirmationDeps captures confirm/resend dependencies.
type ConfirmationDeps struct {
	ConfirmationTTL time.Duration

	Now            func() time.Time
	NormalizeEmail func(string) (string, error)
	NewToken       func() (string, error)
	Enqueue        EnqueueFunc
	IssueSession   func(context.Context, User) (string, error)

	Store StoreFuncs

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics ConfirmationMetrics
	Events  ConfirmationEvents
	Errors  ConfirmationErrors
}

// ResendOutcome reports what RunResendConfirmation did. Known is false when the
// email matched no account; callers answer with a generic message in that case.
type ResendOutcome struct {
	Known  bool
	Queued bool
}

// RunConfirmEmail consumes a confirmation token and signs the owner in.
// An expired token is reported but left on the record.
func RunConfirmEmail(ctx context.Context, token string, deps ConfirmationDeps) (Session, error) {
	normalizeConfirmationDeps(&deps)

	if deps.Store.GetUserByConfirmationToken == nil || deps.Store.MarkEmailConfirmed == nil || deps.IssueSession == nil {
		return Session{}, deps.Errors.EngineNotReady
	}
	if token == "" {
		return Session{}, confirmFailed(ctx, &deps, 0, "", deps.Errors.InvalidToken, "empty_token")
	}

	user, err := deps.Store.GetUserByConfirmationToken(ctx, token)
	if err != nil {
		if deps.Store.IsNotFound(err) {
			return Session{}, confirmFailed(ctx, &deps, 0, "", deps.Errors.InvalidToken, "unknown_token")
		}
		mapped := deps.Store.MapStoreError(err)
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.ConfirmFailure, false, 0, "", mapped, nil)
		return Session{}, mapped
	}

	if user.ConfirmationTokenExpiresAt == nil {
		return Session{}, confirmFailed(ctx, &deps, user.ID, user.Email, deps.Errors.InvalidToken, "missing_expiry")
	}
	if !deps.Now().Before(*user.ConfirmationTokenExpiresAt) {
		return Session{}, confirmFailed(ctx, &deps, user.ID, user.Email, deps.Errors.ExpiredToken, "expired")
	}

	confirmed, err := deps.Store.MarkEmailConfirmed(ctx, user.ID, token)
	if err != nil {
		if deps.Store.IsNotFound(err) {
			// Token was consumed or replaced between lookup and update.
			return Session{}, confirmFailed(ctx, &deps, user.ID, user.Email, deps.Errors.InvalidToken, "token_replaced")
		}
		mapped := deps.Store.MapStoreError(err)
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.ConfirmFailure, false, user.ID, user.Email, mapped, nil)
		return Session{}, mapped
	}

	sessionToken, err := deps.IssueSession(ctx, confirmed)
	if err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.ConfirmSuccess, true, confirmed.ID, confirmed.Email, nil, nil)
	return Session{Token: sessionToken, User: confirmed}, nil
}

func confirmFailed(ctx context.Context, deps *ConfirmationDeps, userID int64, email string, err error, reason string) error {
	switch err {
	case deps.Errors.ExpiredToken:
		deps.MetricInc(deps.Metrics.ConfirmExpiredToken)
	default:
		deps.MetricInc(deps.Metrics.ConfirmInvalidToken)
	}
	deps.EmitAudit(ctx, deps.Events.ConfirmFailure, false, userID, email, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

// RunResendConfirmation issues a fresh confirmation token for an unconfirmed
// account, replacing any earlier one. Unknown emails succeed without effect.
func RunResendConfirmation(ctx context.Context, email string, deps ConfirmationDeps) (ResendOutcome, error) {
	normalizeConfirmationDeps(&deps)

	if deps.Store.GetUserByEmail == nil || deps.Store.SetConfirmationToken == nil || deps.NewToken == nil {
		return ResendOutcome{}, deps.Errors.EngineNotReady
	}

	normalized, err := deps.NormalizeEmail(email)
	if err != nil {
		deps.MetricInc(deps.Metrics.ResendFailure)
		return ResendOutcome{}, err
	}

	user, err := deps.Store.GetUserByEmail(ctx, normalized)
	if err != nil {
		if deps.Store.IsNotFound(err) {
			deps.MetricInc(deps.Metrics.ResendUnknownEmail)
			deps.EmitAudit(ctx, deps.Events.ResendRequest, true, 0, normalized, nil, func() map[string]string {
				return map[string]string{"enumeration_safe": "true"}
			})
			return ResendOutcome{}, nil
		}
		mapped := deps.Store.MapStoreError(err)
		deps.MetricInc(deps.Metrics.ResendFailure)
		deps.EmitAudit(ctx, deps.Events.ResendRequest, false, 0, normalized, mapped, nil)
		return ResendOutcome{}, mapped
	}

	if user.EmailConfirmed {
		deps.MetricInc(deps.Metrics.ResendAlreadyDone)
		deps.EmitAudit(ctx, deps.Events.ResendRequest, false, user.ID, user.Email, deps.Errors.AlreadyConfirmed, nil)
		return ResendOutcome{Known: true}, deps.Errors.AlreadyConfirmed
	}

	token, err := deps.NewToken()
	if err != nil {
		deps.MetricInc(deps.Metrics.ResendFailure)
		return ResendOutcome{Known: true}, fmt.Errorf("generate confirmation token: %w", err)
	}
	expiresAt := deps.Now().UTC().Add(deps.ConfirmationTTL)

	if err := deps.Store.SetConfirmationToken(ctx, user.ID, token, expiresAt); err != nil {
		mapped := deps.Store.MapStoreError(err)
		deps.MetricInc(deps.Metrics.ResendFailure)
		deps.EmitAudit(ctx, deps.Events.ResendRequest, false, user.ID, user.Email, mapped, nil)
		return ResendOutcome{Known: true}, mapped
	}

	queued := deps.Enqueue(ctx, user, token)

	deps.MetricInc(deps.Metrics.ResendSuccess)
	deps.EmitAudit(ctx, deps.Events.ResendRequest, true, user.ID, user.Email, nil, func() map[string]string {
		return map[string]string{"notification_queued": fmt.Sprint(queued)}
	})
	return ResendOutcome{Known: true, Queued: queued}, nil
}

func normalizeConfirmationDeps(deps *ConfirmationDeps) {
	normalizeCommon(&deps.MetricInc, &deps.EmitAudit, &deps.Store, deps.Errors.StoreUnavailable)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ConfirmationTTL <= 0 {
		deps.ConfirmationTTL = 24 * time.Hour
	}
	if deps.NormalizeEmail == nil {
		deps.NormalizeEmail = func(s string) (string, error) { return s, nil }
	}
	if deps.Enqueue == nil {
		deps.Enqueue = func(context.Context, User, string) bool { return false }
	}
}
