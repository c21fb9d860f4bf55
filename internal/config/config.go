// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis connection URL used by the login limiter and the export job store.
	RedisURL string `mapstructure:"REDIS_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "taskplane-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "taskplane-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m"). Must be shorter than REFRESH_TTL.
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// RefreshTTLRaw is the refresh token lifetime (e.g. "168h").
	RefreshTTLRaw string `mapstructure:"REFRESH_TTL"`
	// OTPTTLRaw is the one-time-code lifetime (e.g. "10m").
	OTPTTLRaw string `mapstructure:"OTP_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// LoginMaxAttempts is the number of password attempts allowed per (email, source) window.
	LoginMaxAttempts int `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	// LoginWindowRaw is the attempt-counter window (e.g. "5m").
	LoginWindowRaw string `mapstructure:"LOGIN_WINDOW"`
	// HeartbeatIntervalRaw is the realtime ping cadence (e.g. "30s"). Fixed configuration, not computed.
	HeartbeatIntervalRaw string `mapstructure:"HEARTBEAT_INTERVAL"`
	// HeartbeatMissedLimit is the number of missed heartbeats before a connection is evicted.
	HeartbeatMissedLimit int `mapstructure:"HEARTBEAT_MISSED_LIMIT"`
	// StorageTimeoutRaw bounds storage-backed OTP/refresh operations (e.g. "3s").
	StorageTimeoutRaw string `mapstructure:"STORAGE_TIMEOUT"`
	// TenantBaseDomain is the base domain subdomains hang off (e.g. "example.local" for acme.example.local).
	TenantBaseDomain string `mapstructure:"TENANT_BASE_DOMAIN"`
	// OTPWebhookURL delivers login codes to an external notifier when set; empty logs codes locally (dev only).
	OTPWebhookURL string `mapstructure:"OTP_WEBHOOK_URL"`
	// OTPWebhookAPIKey authenticates against the OTP webhook.
	OTPWebhookAPIKey string `mapstructure:"OTP_WEBHOOK_API_KEY"`
	// ExportDir is where the export worker writes CSV files.
	ExportDir string `mapstructure:"EXPORT_DIR"`
	// ExportJobTTLRaw is how long export job records live in Redis (e.g. "24h").
	ExportJobTTLRaw string `mapstructure:"EXPORT_JOB_TTL"`
	// OTLPEndpoint enables OTLP export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("JWT_ISSUER", "taskplane-auth")
	v.SetDefault("JWT_AUDIENCE", "taskplane-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("REFRESH_TTL", "168h") // 7d
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_WINDOW", "5m")
	v.SetDefault("HEARTBEAT_INTERVAL", "30s")
	v.SetDefault("HEARTBEAT_MISSED_LIMIT", 3)
	v.SetDefault("STORAGE_TIMEOUT", "3s")
	v.SetDefault("TENANT_BASE_DOMAIN", "example.local")
	v.SetDefault("OTP_WEBHOOK_URL", "")
	v.SetDefault("OTP_WEBHOOK_API_KEY", "")
	v.SetDefault("EXPORT_DIR", "exports")
	v.SetDefault("EXPORT_JOB_TTL", "24h")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.AccessTTL() >= cfg.RefreshTTL() {
		return nil, errors.New("config: JWT_ACCESS_TTL must be shorter than REFRESH_TTL")
	}
	if cfg.HeartbeatMissedLimit < 1 {
		return nil, errors.New("config: HEARTBEAT_MISSED_LIMIT must be at least 1")
	}
	if cfg.LoginMaxAttempts < 1 {
		return nil, errors.New("config: LOGIN_MAX_ATTEMPTS must be at least 1")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses RefreshTTLRaw as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTLRaw)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// OTPTTL parses OTPTTLRaw as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) OTPTTL() time.Duration {
	d, err := time.ParseDuration(c.OTPTTLRaw)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// ExportJobTTL parses ExportJobTTLRaw as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) ExportJobTTL() time.Duration {
	d, err := time.ParseDuration(c.ExportJobTTLRaw)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// LoginWindow parses LoginWindowRaw as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) LoginWindow() time.Duration {
	d, err := time.ParseDuration(c.LoginWindowRaw)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// HeartbeatInterval parses HeartbeatIntervalRaw as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) HeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.HeartbeatIntervalRaw)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// StorageTimeout parses StorageTimeoutRaw as a time.Duration. Returns 3s if unset or invalid.
func (c *Config) StorageTimeout() time.Duration {
	d, err := time.ParseDuration(c.StorageTimeoutRaw)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}
