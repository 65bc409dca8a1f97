package authsystem

import (
	"context"

	internalflows "github.com/MrEthical07/authsystem/internal/flows"
)

// GetProfile returns the account behind validated session claims.
func (e *Engine) GetProfile(ctx context.Context, claims *SessionClaims) (PublicUser, error) {
	if !e.ready() {
		return PublicUser{}, ErrEngineNotReady
	}
	if claims == nil || claims.UserID <= 0 {
		return PublicUser{}, ErrUnauthorized
	}

	user, err := internalflows.RunGetProfile(ctx, claims.UserID, e.profileFlowDeps())
	if err != nil {
		return PublicUser{}, err
	}
	return fromFlowUser(user).Public(), nil
}

// UpdateProfile renames the account behind validated session claims. Only the
// name is mutable here.
func (e *Engine) UpdateProfile(ctx context.Context, claims *SessionClaims, name string) (PublicUser, error) {
	if !e.ready() {
		return PublicUser{}, ErrEngineNotReady
	}
	if claims == nil || claims.UserID <= 0 {
		return PublicUser{}, ErrUnauthorized
	}

	user, err := internalflows.RunUpdateProfile(ctx, claims.UserID, name, e.profileFlowDeps())
	if err != nil {
		return PublicUser{}, err
	}
	return fromFlowUser(user).Public(), nil
}

func (e *Engine) profileFlowDeps() internalflows.ProfileDeps {
	return internalflows.ProfileDeps{
		NormalizeName: e.normalizeName,
		Store:         e.storeFuncs(),
		MetricInc:     e.metricHook,
		EmitAudit:     e.emitAudit,
		Metrics: internalflows.ProfileMetrics{
			ProfileRead:    int(MetricProfileRead),
			ProfileUpdated: int(MetricProfileUpdated),
			ProfileFailure: int(MetricProfileFailure),
		},
		Events: internalflows.ProfileEvents{
			ProfileUpdate: auditEventProfileUpdate,
		},
		Errors: internalflows.ProfileErrors{
			EngineNotReady:   ErrEngineNotReady,
			NotFound:         ErrNotFound,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}
