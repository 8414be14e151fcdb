package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/comfyhome/storefront/pkg/config"
	"github.com/comfyhome/storefront/pkg/database"
	"github.com/comfyhome/storefront/pkg/tracing"
)

// DefaultJWTSecret is the development signing secret. It is rejected in any
// other environment.
const DefaultJWTSecret = "dev-only-insecure-secret"

// Storage drivers.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Config holds all configuration for the storefront server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"5000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Postgres database.PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    database.RedisConfig    `envPrefix:"REDIS_"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"dev-only-insecure-secret"`
	JWTLifetime  time.Duration `env:"JWT_LIFETIME" envDefault:"24h"`
	CookieName   string        `env:"AUTH_COOKIE_NAME" envDefault:"UserToken"`
	CookieSecure bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`

	// Payments
	PaymentClientSecret string `env:"PAYMENT_CLIENT_SECRET" envDefault:"someRandomValue"`
	PaymentCurrency     string `env:"PAYMENT_CURRENCY" envDefault:"usd"`

	// Image storage
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"local"`
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"./public/uploads"`
	GCSBucket      string `env:"GCS_BUCKET"`
	GCSCredentials string `env:"GCS_CREDENTIALS_FILE"`

	// CORS and rate limiting
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRequests  int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`

	Tracing tracing.Config `envPrefix:"OTEL_"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// Validate implements pkgconfig.Validator.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Postgres.Host == "" {
		return errors.New("POSTGRES_HOST is required")
	}
	if c.Postgres.User == "" {
		return errors.New("POSTGRES_USER is required")
	}
	if c.Redis.Host == "" {
		return errors.New("REDIS_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTSecret == DefaultJWTSecret && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET must be set outside development (environment %q)", c.Environment)
	}
	if c.JWTLifetime <= 0 {
		return fmt.Errorf("JWT_LIFETIME must be positive, got %s", c.JWTLifetime)
	}
	if c.CookieName == "" {
		return errors.New("AUTH_COOKIE_NAME is required")
	}
	switch c.StorageDriver {
	case StorageLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for local storage")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required for gcs storage")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageLocal, StorageGCS, c.StorageDriver)
	}
	if c.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative, got %d", c.RateLimitRequests)
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// SlowQueryThreshold returns the slow query threshold; zero disables logging.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
