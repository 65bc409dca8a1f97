package authsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/MrEthical07/authsystem/internal"
	"github.com/MrEthical07/authsystem/internal/audit"
	internalflows "github.com/MrEthical07/authsystem/internal/flows"
	"github.com/MrEthical07/authsystem/internal/notify"
	"github.com/MrEthical07/authsystem/jwt"
	"github.com/MrEthical07/authsystem/password"
)

// Engine runs the account lifecycle: register, confirm, login, resend, and
// profile access. It is safe for concurrent use once built.
type Engine struct {
	config        Config
	store         UserStore
	hasher        *password.Hasher
	policy        password.Policy
	jwtManager    *jwt.Manager
	notifications *notify.Dispatcher
	audit         *audit.Dispatcher
	metrics       *Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// Close drains queued notifications and audit events, then stops their workers.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.notifications != nil {
		e.notifications.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// NotificationsDropped reports notifications that never reached the notifier
// because the queue was full or the engine was closing.
func (e *Engine) NotificationsDropped() uint64 {
	if e == nil || e.notifications == nil {
		return 0
	}
	return e.notifications.Dropped()
}

// MetricsSnapshot copies the current counters and histogram buckets.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.hasher != nil && e.jwtManager != nil
}

/*
====================================
INPUT NORMALIZATION
====================================
*/

// normalizeEmail trims and lowercases, so lookups are case-insensitive and the
// unique index sees one spelling per address.
func (e *Engine) normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	err := validation.Validate(email,
		validation.Required,
		validation.RuneLength(3, e.config.Profile.EmailMaxLength),
		is.EmailFormat,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	return email, nil
}

func (e *Engine) normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(e.config.Profile.NameMinLength, e.config.Profile.NameMaxLength),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return name, nil
}

func (e *Engine) checkPassword(plaintext string) error {
	if reasons := e.policy.Check(plaintext); len(reasons) > 0 {
		return &WeakPasswordError{Reasons: reasons}
	}
	return nil
}

/*
====================================
STORE ADAPTERS
====================================
*/

// mapStoreError turns any unexpected store failure into ErrStoreUnavailable,
// keeping the cause in the chain for logs.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func (e *Engine) storeFuncs() internalflows.StoreFuncs {
	s := e.store
	return internalflows.StoreFuncs{
		GetUserByID: func(ctx context.Context, id int64) (internalflows.User, error) {
			u, err := s.GetUserByID(ctx, id)
			return toFlowUser(u), err
		},
		GetUserByEmail: func(ctx context.Context, email string) (internalflows.User, error) {
			u, err := s.GetUserByEmail(ctx, email)
			return toFlowUser(u), err
		},
		GetUserByConfirmationToken: func(ctx context.Context, token string) (internalflows.User, error) {
			u, err := s.GetUserByConfirmationToken(ctx, token)
			return toFlowUser(u), err
		},
		CreateUser: func(ctx context.Context, in internalflows.NewUser) (internalflows.User, error) {
			u, err := s.CreateUser(ctx, CreateUserInput{
				Name:                       in.Name,
				Email:                      in.Email,
				PasswordHash:               in.PasswordHash,
				CreatedAt:                  in.CreatedAt,
				ConfirmationToken:          in.ConfirmationToken,
				ConfirmationTokenExpiresAt: in.ConfirmationTokenExpiresAt,
			})
			return toFlowUser(u), err
		},
		SetConfirmationToken: s.SetConfirmationToken,
		MarkEmailConfirmed: func(ctx context.Context, id int64, token string) (internalflows.User, error) {
			u, err := s.MarkEmailConfirmed(ctx, id, token)
			return toFlowUser(u), err
		},
		UpdateName: func(ctx context.Context, id int64, name string) (internalflows.User, error) {
			u, err := s.UpdateName(ctx, id, name)
			return toFlowUser(u), err
		},
		UpdatePasswordHash: s.UpdatePasswordHash,

		IsNotFound:    func(err error) bool { return errors.Is(err, ErrRecordNotFound) },
		IsDuplicate:   func(err error) bool { return errors.Is(err, ErrDuplicateEmail) },
		MapStoreError: mapStoreError,
	}
}

func toFlowUser(u UserRecord) internalflows.User {
	return internalflows.User{
		ID:                         u.ID,
		Name:                       u.Name,
		Email:                      u.Email,
		PasswordHash:               u.PasswordHash,
		CreatedAt:                  u.CreatedAt,
		EmailConfirmed:             u.EmailConfirmed,
		ConfirmationToken:          u.ConfirmationToken,
		ConfirmationTokenExpiresAt: u.ConfirmationTokenExpiresAt,
	}
}

func fromFlowUser(u internalflows.User) UserRecord {
	return UserRecord{
		ID:                         u.ID,
		Name:                       u.Name,
		Email:                      u.Email,
		PasswordHash:               u.PasswordHash,
		CreatedAt:                  u.CreatedAt,
		EmailConfirmed:             u.EmailConfirmed,
		ConfirmationToken:          u.ConfirmationToken,
		ConfirmationTokenExpiresAt: u.ConfirmationTokenExpiresAt,
	}
}

func publicFromFlow(u internalflows.User) *PublicUser {
	view := fromFlowUser(u).Public()
	return &view
}

/*
====================================
SHARED FLOW HOOKS
====================================
*/

func (e *Engine) metricHook(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) issueSession(_ context.Context, u internalflows.User) (string, error) {
	token, err := e.jwtManager.Issue(jwt.Identity{
		Subject: strconv.FormatInt(u.ID, 10),
		Name:    u.Name,
		Email:   u.Email,
	}, e.jwtManager.TTL())
	if err != nil {
		return "", err
	}
	e.metricInc(MetricSessionIssued)
	return token, nil
}

func (e *Engine) enqueueConfirmation(ctx context.Context, u internalflows.User, token string) bool {
	return e.notifications.Enqueue(notify.Job{
		Kind:      notify.KindConfirmation,
		Email:     u.Email,
		Name:      u.Name,
		Token:     token,
		RequestID: RequestIDFromContext(ctx),
	})
}

func (e *Engine) newConfirmationToken() (string, error) {
	return internal.NewOpaqueToken()
}
