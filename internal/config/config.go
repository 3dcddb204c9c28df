// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

var (
	// ErrUnknownStoreDriver is returned for an unsupported STORE_DRIVER.
	ErrUnknownStoreDriver = errors.New("unknown store driver")
	// ErrMissingStoreURL is returned when the selected driver has no URL.
	ErrMissingStoreURL = errors.New("store driver requires a connection URL")
)

// StoreConfig selects the key-value store behind the data services.
type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"postgres"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"avatarstudio.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// RedisKeyPrefix namespaces the data-service keys in Redis.
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"studio:kv:"`
}

// Validate checks that the selected driver is known and has what it needs.
func (s *StoreConfig) Validate() error {
	switch s.Driver {
	case StoreMemory, StoreSQLite:
		return nil
	case StorePostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingStoreURL)
		}
		return nil
	case StoreRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL", ErrMissingStoreURL)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, s.Driver)
}

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Accounts and photo avatars live in PostgreSQL regardless of STORE_DRIVER.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Optional Redis. Enables rate limiting and the redis store driver.
	RedisURL string `env:"REDIS_URL"`

	Store StoreConfig

	// Share links: <SHARE_BASE_URL>/watch/<id>
	ShareBaseURL string `env:"SHARE_BASE_URL" envDefault:"http://localhost:8080"`
	QRServiceURL string `env:"QR_SERVICE_URL" envDefault:"https://api.qrserver.com/v1/create-qr-code/"`

	// Third-party avatar API
	AvatarAPIURL string  `env:"AVATAR_API_URL" envDefault:"https://api.heygen.com"`
	AvatarAPIKey string  `env:"AVATAR_API_KEY"`
	AvatarAPIRPS float64 `env:"AVATAR_API_RPS" envDefault:"2"`

	// Expired share sweep (cron expression or descriptor)
	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"@hourly"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (requires REDIS_URL)
	RateLimitEnabled           bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitShareAccessPerMin int  `env:"RATE_LIMIT_SHARE_ACCESS_PER_MIN" envDefault:"30"`
	RateLimitShareAccessBurst  int  `env:"RATE_LIMIT_SHARE_ACCESS_BURST" envDefault:"10"`
	RateLimitLoginPerMin       int  `env:"RATE_LIMIT_LOGIN_PER_MIN" envDefault:"10"`
	RateLimitLoginBurst        int  `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RateLimitActive reports whether rate limiting can run.
func (c *Config) RateLimitActive() bool {
	return c.RateLimitEnabled && c.RedisURL != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	return cfg, nil
}

// LoadStore parses only the store settings. Used by tools that do not
// need the full server configuration.
func LoadStore() (*StoreConfig, error) {
	cfg := &StoreConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse store config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	return cfg, nil
}
