package flows

import (
	"context"
	"fmt"
	"time"
)

// RegisterInput is the flow-local register request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	RegisterSuccess      int
	RegisterDuplicate    int
	RegisterWeakPassword int
	RegisterFailure      int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess   string
	RegisterFailure   string
	RegisterDuplicate string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady   error
	EmailTaken       error
	StoreUnavailable error
}

// RegisterDeps captures register dependencies.
type RegisterDeps struct {
	ConfirmationTTL time.Duration

	Now            func() time.Time
	NormalizeEmail func(string) (string, error)
	NormalizeName  func(string) (string, error)
	CheckPassword  func(string) error
	HashPassword   func(string) (string, error)
	NewToken       func() (string, error)
	Enqueue        EnqueueFunc

	Store StoreFuncs

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister creates an unconfirmed account and queues its confirmation
// notification. It never authenticates the caller.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (User, error) {
	normalizeRegisterDeps(&deps)

	if deps.Store.GetUserByEmail == nil || deps.Store.CreateUser == nil ||
		deps.CheckPassword == nil || deps.HashPassword == nil || deps.NewToken == nil {
		return User{}, deps.Errors.EngineNotReady
	}

	email, err := deps.NormalizeEmail(in.Email)
	if err != nil {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, 0, "", err, func() map[string]string {
			return map[string]string{"reason": "invalid_email"}
		})
		return User{}, err
	}
	name, err := deps.NormalizeName(in.Name)
	if err != nil {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, 0, email, err, func() map[string]string {
			return map[string]string{"reason": "invalid_name"}
		})
		return User{}, err
	}

	// Advisory only; the store's unique constraint is authoritative below.
	if existing, err := deps.Store.GetUserByEmail(ctx, email); err == nil {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, existing.ID, email, deps.Errors.EmailTaken, nil)
		return User{}, deps.Errors.EmailTaken
	} else if !deps.Store.IsNotFound(err) {
		mapped := deps.Store.MapStoreError(err)
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, 0, email, mapped, nil)
		return User{}, mapped
	}

	if err := deps.CheckPassword(in.Password); err != nil {
		deps.MetricInc(deps.Metrics.RegisterWeakPassword)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, 0, email, err, func() map[string]string {
			return map[string]string{"reason": "weak_password"}
		})
		return User{}, err
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	token, err := deps.NewToken()
	if err != nil {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		return User{}, fmt.Errorf("generate confirmation token: %w", err)
	}

	now := deps.Now().UTC()
	user, err := deps.Store.CreateUser(ctx, NewUser{
		Name:                       name,
		Email:                      email,
		PasswordHash:               hash,
		CreatedAt:                  now,
		ConfirmationToken:          token,
		ConfirmationTokenExpiresAt: now.Add(deps.ConfirmationTTL),
	})
	if err != nil {
		if deps.Store.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, 0, email, deps.Errors.EmailTaken, func() map[string]string {
				return map[string]string{"reason": "unique_constraint"}
			})
			return User{}, deps.Errors.EmailTaken
		}
		mapped := deps.Store.MapStoreError(err)
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, 0, email, mapped, nil)
		return User{}, mapped
	}

	queued := deps.Enqueue(ctx, user, token)

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, user.ID, user.Email, nil, func() map[string]string {
		return map[string]string{"notification_queued": fmt.Sprint(queued)}
	})
	return user, nil
}

func normalizeRegisterDeps(deps *RegisterDeps) {
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
	if deps.NormalizeName == nil {
		deps.NormalizeName = func(s string) (string, error) { return s, nil }
	}
	if deps.Enqueue == nil {
		deps.Enqueue = func(context.Context, User, string) bool { return false }
	}
}
