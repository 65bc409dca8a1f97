package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	authsystem "github.com/MrEthical07/authsystem"
)

const envPrefix = "AUTHSYSTEM_"

// listKeys hold comma-separated values when set through the environment.
var listKeys = map[string]bool{
	"http.allowed_origins": true,
}

// appConfig is the binary's configuration. Keys are always two levels deep so
// AUTHSYSTEM_SECTION_SOME_KEY maps to section.some_key.
type appConfig struct {
	HTTP struct {
		Addr            string        `koanf:"addr"`
		AllowedOrigins  []string      `koanf:"allowed_origins"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`

	Store struct {
		Driver      string `koanf:"driver"`
		DSN         string `koanf:"dsn"`
		RedisPrefix string `koanf:"redis_prefix"`
		AutoMigrate bool   `koanf:"auto_migrate"`
	} `koanf:"store"`

	JWT struct {
		Secret   string        `koanf:"secret"`
		Issuer   string        `koanf:"issuer"`
		Audience string        `koanf:"audience"`
		TTL      time.Duration `koanf:"ttl"`
	} `koanf:"jwt"`

	Confirmation struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"confirmation"`

	Notify struct {
		FrontendURL string `koanf:"frontend_url"`
		QueueSize   int    `koanf:"queue_size"`
		Workers     int    `koanf:"workers"`
	} `koanf:"notify"`

	Metrics struct {
		Enabled    bool `koanf:"enabled"`
		Histograms bool `koanf:"histograms"`
	} `koanf:"metrics"`

	Audit struct {
		Enabled bool `koanf:"enabled"`
	} `koanf:"audit"`
}

// bindConfigFlags registers every config key as a flag. Flag defaults are the
// configuration defaults.
func bindConfigFlags(fs *pflag.FlagSet) {
	def := authsystem.DefaultConfig()

	fs.String("http.addr", ":8080", "listen address")
	fs.StringSlice("http.allowed_origins", []string{"http://localhost:3000"}, "CORS allowed origins")
	fs.Duration("http.shutdown_timeout", 15*time.Second, "graceful shutdown timeout")

	fs.String("log.level", "info", "log level (debug, info, warn, error)")
	fs.String("log.format", "json", "log format (json, text)")

	fs.String("store.driver", "memory", "user store (memory, redis, postgres, sqlite)")
	fs.String("store.dsn", "", "store connection string or sqlite file path")
	fs.String("store.redis_prefix", "as", "redis key prefix")
	fs.Bool("store.auto_migrate", true, "apply SQL migrations on startup")

	fs.String("jwt.secret", "", "HS256 signing secret, at least 32 bytes")
	fs.String("jwt.issuer", def.JWT.Issuer, "session token issuer")
	fs.String("jwt.audience", def.JWT.Audience, "session token audience")
	fs.Duration("jwt.ttl", def.JWT.TTL, "session token lifetime")

	fs.Duration("confirmation.ttl", def.Confirmation.TokenTTL, "confirmation token lifetime")

	fs.String("notify.frontend_url", "http://localhost:3000", "frontend base URL for email links")
	fs.Int("notify.queue_size", def.Notification.QueueSize, "notification queue capacity")
	fs.Int("notify.workers", def.Notification.Workers, "notification workers")

	fs.Bool("metrics.enabled", def.Metrics.Enabled, "expose /metrics")
	fs.Bool("metrics.histograms", def.Metrics.EnableLatencyHistograms, "record session validation latency")

	fs.Bool("audit.enabled", def.Audit.Enabled, "log audit events")
}

// loadConfig layers the optional YAML file, then AUTHSYSTEM_* environment, then
// explicitly set flags. Unset flags only supply defaults.
func loadConfig(fs *pflag.FlagSet, path string) (appConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return appConfig{}, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return appConfig{}, oops.Code("CONFIG_INVALID").With("source", "env").Wrap(err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return appConfig{}, oops.Code("CONFIG_INVALID").With("source", "flags").Wrap(err)
	}

	var cfg appConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return appConfig{}, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	return cfg, nil
}

// envKey maps AUTHSYSTEM_STORE_REDIS_PREFIX to store.redis_prefix.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, envPrefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}
	return section + "." + key
}

// envValue maps the variable name with envKey and splits list-valued keys on
// commas, dropping empty entries.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return key, out
}

// engineConfig converts the binary's settings to the engine configuration.
func (c appConfig) engineConfig() authsystem.Config {
	cfg := authsystem.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Audience = c.JWT.Audience
	cfg.JWT.TTL = c.JWT.TTL
	cfg.Confirmation.TokenTTL = c.Confirmation.TTL
	cfg.Notification.QueueSize = c.Notify.QueueSize
	cfg.Notification.Workers = c.Notify.Workers
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Histograms
	cfg.Audit.Enabled = c.Audit.Enabled
	return cfg
}
