package authsystem

import (
	"context"

	internalflows "github.com/MrEthical07/authsystem/internal/flows"
)

// Register creates an unconfirmed account and queues its confirmation email.
//
// Checks run in a fixed order: email format, name length, email availability,
// password strength. A taken email is reported before any password feedback.
// Password failures come back as *WeakPasswordError listing every failed rule.
//
// The confirmation token never appears in the Result; it only reaches the
// Notifier.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Result, error) {
	if !e.ready() {
		return Result{}, ErrEngineNotReady
	}

	user, err := internalflows.RunRegister(ctx, internalflows.RegisterInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	}, e.registerFlowDeps())
	if err != nil {
		return Result{Message: MessageFor(err)}, err
	}

	return Result{
		Success: true,
		Message: MsgRegistered,
		User:    publicFromFlow(user),
	}, nil
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	return internalflows.RegisterDeps{
		ConfirmationTTL: e.config.Confirmation.TokenTTL,
		Now:             e.now,
		NormalizeEmail:  e.normalizeEmail,
		NormalizeName:   e.normalizeName,
		CheckPassword:   e.checkPassword,
		HashPassword:    e.hasher.Hash,
		NewToken:        e.newConfirmationToken,
		Enqueue:         e.enqueueConfirmation,
		Store:           e.storeFuncs(),
		MetricInc:       e.metricHook,
		EmitAudit:       e.emitAudit,
		Metrics: internalflows.RegisterMetrics{
			RegisterSuccess:      int(MetricRegisterSuccess),
			RegisterDuplicate:    int(MetricRegisterDuplicate),
			RegisterWeakPassword: int(MetricRegisterWeakPassword),
			RegisterFailure:      int(MetricRegisterFailure),
		},
		Events: internalflows.RegisterEvents{
			RegisterSuccess:   auditEventRegisterSuccess,
			RegisterFailure:   auditEventRegisterFailure,
			RegisterDuplicate: auditEventRegisterDuplicate,
		},
		Errors: internalflows.RegisterErrors{
			EngineNotReady:   ErrEngineNotReady,
			EmailTaken:       ErrEmailTaken,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}
