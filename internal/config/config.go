// Package config defines service configuration and how it is loaded.
//
// Conventions:
//   - Config is a flat struct with koanf tags; New returns defaults.
//   - Load layers defaults, an optional .env file, an optional YAML file and
//     EVENTBOARD_* environment variables.
//   - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers understood by the repository layer.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the event store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresDSN is the connection string used by the postgres driver.
	PostgresDSN string `koanf:"postgres_dsn"`

	// SeedFile optionally points to a YAML file of events loaded into an empty store.
	SeedFile string `koanf:"seed_file"`

	// JWTSecret signs and verifies session tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL bounds the lifetime of tokens minted by the token command.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// RefreshCron is the schedule for reloading the listing snapshot.
	RefreshCron string `koanf:"refresh_cron"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRPS and RateLimitBurst throttle mutating requests per client.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// IdempotencySize bounds the create idempotency cache.
	IdempotencySize int `koanf:"idempotency_size"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		StoreDriver:     DriverMemory,
		SQLitePath:      "eventboard.db",
		TokenTTL:        24 * time.Hour,
		RefreshCron:     "@every 30s",
		CORSOrigins:     []string{"*"},
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		IdempotencySize: 10_000,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate limits must be positive", ErrInvalidConfig)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token_ttl must be positive", ErrInvalidConfig)
	}
	return nil
}
