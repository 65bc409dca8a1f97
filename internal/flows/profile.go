package flows

import "context"

// ProfileMetrics carries metric IDs needed by the profile flows.
type ProfileMetrics struct {
	ProfileRead    int
	ProfileUpdated int
	ProfileFailure int
}

// ProfileEvents carries audit event names used by the profile flows.
type ProfileEvents struct {
	ProfileUpdate string
}

// ProfileErrors carries host-level sentinel errors used by the profile flows.
type ProfileErrors struct {
	EngineNotReady   error
	NotFound         error
	StoreUnavailable error
}

// ProfileDeps captures profile dependencies.
type ProfileDeps struct {
	NormalizeName func(string) (string, error)

	Store StoreFuncs

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics ProfileMetrics
	Events  ProfileEvents
	Errors  ProfileErrors
}

// RunGetProfile loads the account behind an authenticated subject.
func RunGetProfile(ctx context.Context, userID int64, deps ProfileDeps) (User, error) {
	normalizeProfileDeps(&deps)

	if deps.Store.GetUserByID == nil {
		return User{}, deps.Errors.EngineNotReady
	}

	user, err := deps.Store.GetUserByID(ctx, userID)
	if err != nil {
		deps.MetricInc(deps.Metrics.ProfileFailure)
		if deps.Store.IsNotFound(err) {
			return User{}, deps.Errors.NotFound
		}
		return User{}, deps.Store.MapStoreError(err)
	}

	deps.MetricInc(deps.Metrics.ProfileRead)
	return user, nil
}

// RunUpdateProfile renames the account behind an authenticated subject. The
// email is not reachable through this path.
func RunUpdateProfile(ctx context.Context, userID int64, name string, deps ProfileDeps) (User, error) {
	normalizeProfileDeps(&deps)

	if deps.Store.UpdateName == nil {
		return User{}, deps.Errors.EngineNotReady
	}

	normalized, err := deps.NormalizeName(name)
	if err != nil {
		deps.MetricInc(deps.Metrics.ProfileFailure)
		deps.EmitAudit(ctx, deps.Events.ProfileUpdate, false, userID, "", err, func() map[string]string {
			return map[string]string{"reason": "invalid_name"}
		})
		return User{}, err
	}

	user, err := deps.Store.UpdateName(ctx, userID, normalized)
	if err != nil {
		deps.MetricInc(deps.Metrics.ProfileFailure)
		mapped := deps.Errors.NotFound
		if !deps.Store.IsNotFound(err) {
			mapped = deps.Store.MapStoreError(err)
		}
		deps.EmitAudit(ctx, deps.Events.ProfileUpdate, false, userID, "", mapped, nil)
		return User{}, mapped
	}

	deps.MetricInc(deps.Metrics.ProfileUpdated)
	deps.EmitAudit(ctx, deps.Events.ProfileUpdate, true, user.ID, user.Email, nil, nil)
	return user, nil
}

func normalizeProfileDeps(deps *ProfileDeps) {
	normalizeCommon(&deps.MetricInc, &deps.EmitAudit, &deps.Store, deps.Errors.StoreUnavailable)
	if deps.NormalizeName == nil {
		deps.NormalizeName = func(s string) (string, error) { return s, nil }
	}
}
