package authsystem

import (
	"context"

	internalflows "github.com/MrEthical07/authsystem/internal/flows"
)

// ConfirmEmail consumes a confirmation token, marks the account confirmed and
// signs the owner in.
//
// An unknown or already consumed token yields ErrInvalidToken. A token at or
// past its expiry yields ErrExpiredToken and stays on the record until a resend
// replaces it.
func (e *Engine) ConfirmEmail(ctx context.Context, token string) (Result, error) {
	if !e.ready() {
		return Result{}, ErrEngineNotReady
	}

	session, err := internalflows.RunConfirmEmail(ctx, token, e.confirmationFlowDeps())
	if err != nil {
		return Result{Message: MessageFor(err)}, err
	}

	return Result{
		Success: true,
		Message: MsgEmailConfirmed,
		Token:   session.Token,
		User:    publicFromFlow(session.User),
	}, nil
}

// ResendConfirmation issues a fresh confirmation token and queues the email.
// Earlier tokens for the account stop working.
//
// An email with no account succeeds with MsgConfirmationGeneric and sends
// nothing. A confirmed account yields ErrAlreadyConfirmed.
func (e *Engine) ResendConfirmation(ctx context.Context, email string) (Result, error) {
	if !e.ready() {
		return Result{}, ErrEngineNotReady
	}

	outcome, err := internalflows.RunResendConfirmation(ctx, email, e.confirmationFlowDeps())
	if err != nil {
		return Result{Message: MessageFor(err)}, err
	}
	if !outcome.Known {
		return Result{Success: true, Message: MsgConfirmationGeneric}, nil
	}
	return Result{Success: true, Message: MsgConfirmationResent}, nil
}

func (e *Engine) confirmationFlowDeps() internalflows.ConfirmationDeps {
	return internalflows.ConfirmationDeps{
		ConfirmationTTL: e.config.Confirmation.TokenTTL,
		Now:             e.now,
		NormalizeEmail:  e.normalizeEmail,
		NewToken:        e.newConfirmationToken,
		Enqueue:         e.enqueueConfirmation,
		IssueSession:    e.issueSession,
		Store:           e.storeFuncs(),
		MetricInc:       e.metricHook,
		EmitAudit:       e.emitAudit,
		Metrics: internalflows.ConfirmationMetrics{
			ConfirmSuccess:      int(MetricConfirmSuccess),
			ConfirmInvalidToken: int(MetricConfirmInvalidToken),
			ConfirmExpiredToken: int(MetricConfirmExpiredToken),
			ConfirmFailure:      int(MetricConfirmFailure),
			ResendSuccess:       int(MetricResendSuccess),
			ResendUnknownEmail:  int(MetricResendUnknownEmail),
			ResendAlreadyDone:   int(MetricResendAlreadyConfirmed),
			ResendFailure:       int(MetricResendFailure),
		},
		Events: internalflows.ConfirmationEvents{
			ConfirmSuccess: auditEventConfirmSuccess,
			ConfirmFailure: auditEventConfirmFailure,
			ResendRequest:  auditEventResendRequest,
		},
		Errors: internalflows.ConfirmationErrors{
			EngineNotReady:   ErrEngineNotReady,
			InvalidToken:     ErrInvalidToken,
			ExpiredToken:     ErrExpiredToken,
			AlreadyConfirmed: ErrAlreadyConfirmed,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}
