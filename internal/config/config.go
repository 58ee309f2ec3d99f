// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"referral-network-hub/backend/internal/security"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis:// URL of the key-value cache. Empty uses an in-process cache.
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWTAccessSecret signs access tokens. Inline or "file:/path"; at least 32 bytes.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens. Must differ from JWTAccessSecret.
	JWTRefreshSecret string        `mapstructure:"JWT_REFRESH_SECRET"`
	JWTIssuer        string        `mapstructure:"JWT_ISSUER"`
	JWTAudience      string        `mapstructure:"JWT_AUDIENCE"`
	JWTAccessTTL     time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL    time.Duration `mapstructure:"JWT_REFRESH_TTL"`

	// MaxActiveSessions caps concurrent active sessions per user.
	MaxActiveSessions int           `mapstructure:"MAX_ACTIVE_SESSIONS_PER_USER"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	InviteTTLPlatformAdmin time.Duration `mapstructure:"INVITE_TTL_PLATFORM_ADMIN"`
	InviteTTLOrgAdmin      time.Duration `mapstructure:"INVITE_TTL_ORG_ADMIN"`
	InviteTTLRecruiter     time.Duration `mapstructure:"INVITE_TTL_RECRUITER"`
	InviteTTLEmployee      time.Duration `mapstructure:"INVITE_TTL_EMPLOYEE"`
	// InvitePolicyFile is an optional path to a Rego module replacing the built-in invite rules.
	InvitePolicyFile string `mapstructure:"INVITE_POLICY_FILE"`

	RequireEmailVerified bool          `mapstructure:"REQUIRE_EMAIL_VERIFIED"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	// SweepInterval is how often the worker expires stale sessions, invites and refresh tokens.
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`

	// KafkaBrokers is a comma-separated list of broker addresses. Empty disables invite events.
	KafkaBrokers     string `mapstructure:"KAFKA_BROKERS"`
	InviteKafkaTopic string `mapstructure:"INVITE_KAFKA_TOPIC"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	accessSecret  []byte
	refreshSecret []byte
}

var defaults = map[string]any{
	"HTTP_ADDR":                    ":8080",
	"GRPC_ADDR":                    ":9090",
	"DATABASE_URL":                 "",
	"REDIS_URL":                    "",
	"JWT_ACCESS_SECRET":            "",
	"JWT_REFRESH_SECRET":           "",
	"JWT_ISSUER":                   "referral-hub-auth",
	"JWT_AUDIENCE":                 "referral-hub-api",
	"JWT_ACCESS_TTL":               "1h",
	"JWT_REFRESH_TTL":              "168h",
	"MAX_ACTIVE_SESSIONS_PER_USER": 5,
	"SESSION_TTL":                  "168h",
	"BCRYPT_COST":                  12,
	"INVITE_TTL_PLATFORM_ADMIN":    "48h",
	"INVITE_TTL_ORG_ADMIN":         "168h",
	"INVITE_TTL_RECRUITER":         "72h",
	"INVITE_TTL_EMPLOYEE":          "72h",
	"INVITE_POLICY_FILE":           "",
	"REQUIRE_EMAIL_VERIFIED":       false,
	"REQUEST_TIMEOUT":              "5s",
	"SWEEP_INTERVAL":               "5m",
	"KAFKA_BROKERS":                "",
	"INVITE_KAFKA_TOPIC":           "referral-invites",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "",
	"OTEL_EXPORTER_OTLP_INSECURE":  false,
	"APP_ENV":                      "",
	"LOG_LEVEL":                    "info",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage is Load for the offline commands (migrate, seed, worker): it requires DATABASE_URL
// and checks the storage knobs but not the JWT secrets or listen addresses.
func LoadStorage() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if err := cfg.validateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" || c.GRPCAddr == "" {
		return errors.New("config: HTTP_ADDR and GRPC_ADDR must be set")
	}
	access, err := security.LoadSecret(c.JWTAccessSecret)
	if err != nil {
		return fmt.Errorf("config: JWT_ACCESS_SECRET must be set and at least %d bytes: %w", security.MinSecretBytes, err)
	}
	refresh, err := security.LoadSecret(c.JWTRefreshSecret)
	if err != nil {
		return fmt.Errorf("config: JWT_REFRESH_SECRET must be set and at least %d bytes: %w", security.MinSecretBytes, err)
	}
	if string(access) == string(refresh) {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	c.accessSecret, c.refreshSecret = access, refresh

	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return errors.New("config: JWT_ISSUER and JWT_AUDIENCE must be set")
	}
	for name, d := range map[string]time.Duration{
		"JWT_ACCESS_TTL":            c.JWTAccessTTL,
		"JWT_REFRESH_TTL":           c.JWTRefreshTTL,
		"SESSION_TTL":               c.SessionTTL,
		"INVITE_TTL_PLATFORM_ADMIN": c.InviteTTLPlatformAdmin,
		"INVITE_TTL_ORG_ADMIN":      c.InviteTTLOrgAdmin,
		"INVITE_TTL_RECRUITER":      c.InviteTTLRecruiter,
		"INVITE_TTL_EMPLOYEE":       c.InviteTTLEmployee,
		"REQUEST_TIMEOUT":           c.RequestTimeout,
		"SWEEP_INTERVAL":            c.SweepInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be a positive duration", name)
		}
	}
	return c.validateStorage()
}

func (c *Config) validateStorage() error {
	if c.SweepInterval <= 0 || c.SessionTTL <= 0 {
		return errors.New("config: SWEEP_INTERVAL and SESSION_TTL must be positive durations")
	}
	if c.MaxActiveSessions < 1 {
		return errors.New("config: MAX_ACTIVE_SESSIONS_PER_USER must be at least 1")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// AccessSecret returns the decoded access-token secret. Valid after Load.
func (c *Config) AccessSecret() []byte { return c.accessSecret }

// RefreshSecret returns the decoded refresh-token secret. Valid after Load.
func (c *Config) RefreshSecret() []byte { return c.refreshSecret }

// IsProduction reports APP_ENV=production.
func (c *Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables invite events.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
