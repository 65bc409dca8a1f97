package authsystem

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authsystem/internal/audit"
	"github.com/MrEthical07/authsystem/internal/notify"
	"github.com/MrEthical07/authsystem/jwt"
	"github.com/MrEthical07/authsystem/password"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config

	store     UserStore
	notifier  Notifier
	auditSink AuditSink
	logger    *slog.Logger
	policy    *password.Policy
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the persistence backend. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the outbound email collaborator. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit destination used when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for notification outcomes and password
// upgrades. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithPasswordPolicy overrides password.DefaultPolicy.
func (b *Builder) WithPasswordPolicy(p password.Policy) *Builder {
	b.policy = &p
	return b
}

// WithClock overrides time.Now for token expiry decisions. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the notification workers and,
// when enabled, the audit dispatcher. Call Engine.Close to stop them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("user store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := password.DefaultPolicy()
	if b.policy != nil {
		policy = *b.policy
	}

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		Secret:   cloneBytes(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
		Leeway:   cfg.JWT.Leeway,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		store:      b.store,
		hasher:     hasher,
		policy:     policy,
		jwtManager: jm,
		logger:     logger,
		now:        now,
		metrics:    NewMetrics(cfg.Metrics),
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)

	engine.notifications = notify.NewDispatcher(notify.Config{
		QueueSize:   cfg.Notification.QueueSize,
		Workers:     cfg.Notification.Workers,
		SendTimeout: cfg.Notification.SendTimeout,
	}, b.notifier, logger, notify.Hooks{
		OnSent:    func(notify.Kind) { engine.metricInc(MetricNotificationSent) },
		OnFailed:  func(notify.Kind) { engine.metricInc(MetricNotificationFailed) },
		OnDropped: func(notify.Kind) { engine.metricInc(MetricNotificationDropped) },
	})

	b.built = true

	return engine, nil
}
