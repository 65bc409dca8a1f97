package authsystem

import (
	"errors"
	"strings"
	"time"
)

// Config holds every tunable of the Engine. It is copied at Builder.Build and never
// mutated afterwards.
type Config struct {
	JWT          JWTConfig
	Password     PasswordConfig
	Confirmation ConfirmationConfig
	Profile      ProfileConfig
	Notification NotificationConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session token signing. Secret is the HS256 key.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters. UpgradeOnLogin re-hashes legacy or
// weaker hashes after a successful login.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// ConfirmationConfig controls email confirmation tokens.
type ConfirmationConfig struct {
	TokenTTL time.Duration
}

// ProfileConfig bounds the user-supplied identity fields. Lengths count runes.
type ProfileConfig struct {
	NameMinLength  int
	NameMaxLength  int
	EmailMaxLength int
}

// NotificationConfig sizes the outbound notification queue.
type NotificationConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// AuditConfig controls the asynchronous audit trail.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.Secret is left empty and
// must be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:   "authsystem",
			Audience: "authsystem-client",
			TTL:      24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Confirmation: ConfirmationConfig{
			TokenTTL: 24 * time.Hour,
		},
		Profile: ProfileConfig{
			NameMinLength:  2,
			NameMaxLength:  100,
			EmailMaxLength: 255,
		},
		Notification: NotificationConfig{
			QueueSize:   256,
			Workers:     2,
			SendTimeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// MinSecretLength is the shortest accepted HS256 secret, in bytes.
const MinSecretLength = 32

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) < MinSecretLength {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must be set")
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must be set")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Confirmation
	if c.Confirmation.TokenTTL <= 0 {
		return errors.New("Confirmation TokenTTL must be > 0")
	}

	// Profile
	if c.Profile.NameMinLength < 1 {
		return errors.New("Profile NameMinLength must be >= 1")
	}
	if c.Profile.NameMaxLength < c.Profile.NameMinLength {
		return errors.New("Profile NameMaxLength must be >= NameMinLength")
	}
	if c.Profile.EmailMaxLength < 3 {
		return errors.New("Profile EmailMaxLength must be >= 3")
	}

	// Notification
	if c.Notification.QueueSize <= 0 {
		return errors.New("Notification QueueSize must be > 0")
	}
	if c.Notification.Workers <= 0 {
		return errors.New("Notification Workers must be > 0")
	}
	if c.Notification.SendTimeout <= 0 {
		return errors.New("Notification SendTimeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
