package authsystem

import (
	"context"

	"github.com/MrEthical07/authsystem/internal"
	internalflows "github.com/MrEthical07/authsystem/internal/flows"
)

// Login verifies email and password and returns a session token.
//
// An unknown email and a wrong password both yield ErrInvalidCredentials, and
// both spend one full password verification. Valid credentials on an
// unconfirmed account yield ErrEmailNotConfirmed.
func (e *Engine) Login(ctx context.Context, in LoginInput) (Result, error) {
	if !e.ready() {
		return Result{}, ErrEngineNotReady
	}

	session, err := internalflows.RunLogin(ctx, internalflows.LoginInput{
		Email:    in.Email,
		Password: in.Password,
	}, e.loginFlowDeps())
	if err != nil {
		return Result{Message: MessageFor(err)}, err
	}

	return Result{
		Success: true,
		Message: MsgLoggedIn,
		Token:   session.Token,
		User:    publicFromFlow(session.User),
	}, nil
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		NormalizeEmail: e.normalizeEmail,
		VerifyPassword: e.hasher.Verify,
		VerifyDummy:    func(plain string) { e.hasher.VerifyDummy(plain) },
		NeedsRehash:    e.hasher.NeedsRehash,
		HashPassword:   e.hasher.Hash,
		IssueSession:   e.issueSession,
		OnUpgradeError: e.logUpgradeError,
		Store:          e.storeFuncs(),
		MetricInc:      e.metricHook,
		EmitAudit:      e.emitAudit,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginUnconfirmed: int(MetricLoginUnconfirmed),
			PasswordUpgraded: int(MetricPasswordUpgraded),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			EmailNotConfirmed:  ErrEmailNotConfirmed,
			StoreUnavailable:   ErrStoreUnavailable,
		},
	}
}

// logUpgradeError records a failed hash upgrade. The login itself has already
// succeeded and is not affected.
func (e *Engine) logUpgradeError(ctx context.Context, u internalflows.User, err error) {
	e.logger.WarnContext(ctx, "password hash upgrade failed",
		"user_id", u.ID,
		"email_fp", internal.Fingerprint(u.Email),
		"error", err,
	)
	e.emitAudit(ctx, auditEventPasswordUpgraded, false, u.ID, u.Email, err, nil)
}
