package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Mahmoudramadan21/Bookify/pkg/config"
	"github.com/Mahmoudramadan21/Bookify/pkg/database"
	"github.com/Mahmoudramadan21/Bookify/pkg/kafka"
	"github.com/Mahmoudramadan21/Bookify/pkg/tracing"
)

// Config holds all configuration for the Bookify API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"35s"`
	HTTPIdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout     time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins        []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RankingCacheMaxAge time.Duration `env:"RANKING_HTTP_MAX_AGE" envDefault:"60s"`

	// Auth
	AuthRateLimitRPS   float64       `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthRateLimitBurst int           `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry          time.Duration `env:"JWT_EXPIRY" envDefault:"720h"`
	AdminEmail         string        `env:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword      string        `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	Postgres database.PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    database.RedisConfig    `envPrefix:"REDIS_"`
	Kafka    kafka.Config            `envPrefix:"KAFKA_"`
	OTEL     tracing.Config          `envPrefix:"OTEL_"`

	// Ranking cache TTL; invalidation events normally expire entries sooner.
	RankingCacheTTL time.Duration `env:"RANKING_CACHE_TTL" envDefault:"5m"`

	// Consumer idempotency window
	EventDedupTTL time.Duration `env:"EVENT_DEDUP_TTL" envDefault:"24h"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load bookify config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.Postgres.User == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTEL.SampleRate < 0 || c.OTEL.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTEL.SampleRate)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be > 0, got %s", c.JWTExpiry)
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	if c.AdminPassword != "" && len(c.AdminPassword) < 8 {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be at least 8 characters")
	}
	if c.RankingCacheTTL <= 0 {
		return fmt.Errorf("RANKING_CACHE_TTL must be > 0, got %s", c.RankingCacheTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT must be > 0, got %s", c.RequestTimeout)
	}
	return nil
}

// SlowQueryThreshold returns the slow query threshold as a duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
