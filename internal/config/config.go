package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Version     string `envconfig:"VERSION" default:"dev"`
	BcryptCost  int    `envconfig:"BCRYPT_COST" default:"12"`

	// TeamLockTimeout bounds the wait for a team's row lock. Requests that
	// wait longer fail with a retryable error.
	TeamLockTimeout time.Duration `envconfig:"TEAM_LOCK_TIMEOUT" default:"3s"`
	MigrationsAuto  bool          `envconfig:"MIGRATIONS_AUTO" default:"true"`

	// RedisAddr enables pub/sub delivery of notifications. When empty,
	// notifications are only logged.
	RedisAddr           string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword       string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB             int           `envconfig:"REDIS_DB" default:"0"`
	NotificationChannel string        `envconfig:"NOTIFICATION_CHANNEL" default:"teamup:notifications"`
	DispatchInterval    time.Duration `envconfig:"DISPATCH_INTERVAL" default:"2s"`
	DispatchBatchSize   int           `envconfig:"DISPATCH_BATCH_SIZE" default:"100"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TeamLockTimeout <= 0 {
		return fmt.Errorf("TEAM_LOCK_TIMEOUT must be positive, got %s", c.TeamLockTimeout)
	}
	if c.DispatchInterval <= 0 {
		return fmt.Errorf("DISPATCH_INTERVAL must be positive, got %s", c.DispatchInterval)
	}
	if c.DispatchBatchSize < 1 {
		return fmt.Errorf("DISPATCH_BATCH_SIZE must be at least 1, got %d", c.DispatchBatchSize)
	}
	return nil
}
