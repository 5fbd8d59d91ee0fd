// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/event-factory/internal/database"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete server configuration.
type Config struct {
	Port     string     `env:"PORT" envDefault:"8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"eventfactory.db"`
	Database    database.Config

	Factory FactoryConfig
	Runtime RuntimeConfig
	Retry   RetryConfig
}

// FactoryConfig configures the factory contract deployed at startup.
type FactoryConfig struct {
	Account        model.AccountID `env:"FACTORY_ACCOUNT" envDefault:"events.near"`
	MinDeposit     model.Amount    `env:"FACTORY_MIN_DEPOSIT" envDefault:"0"`
	PendingTimeout time.Duration   `env:"FACTORY_PENDING_TIMEOUT" envDefault:"0s"`
}

// RuntimeConfig sizes the asynchronous deployment pool.
type RuntimeConfig struct {
	DeployWorkers int `env:"DEPLOY_WORKERS" envDefault:"4"`
	DeployQueue   int `env:"DEPLOY_QUEUE" envDefault:"64"`
}

// RetryConfig bounds retries of conflicting transactions and callbacks.
type RetryConfig struct {
	MaxRetries   int           `env:"RETRY_MAX_RETRIES" envDefault:"5"`
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"50ms"`
	MaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"2s"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverPostgres:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if err := c.Factory.Account.Validate(); err != nil {
		return fmt.Errorf("FACTORY_ACCOUNT: %w", err)
	}
	if c.Factory.PendingTimeout < 0 {
		return fmt.Errorf("FACTORY_PENDING_TIMEOUT must not be negative")
	}
	if c.Runtime.DeployWorkers <= 0 {
		return fmt.Errorf("DEPLOY_WORKERS must be positive")
	}
	if c.Runtime.DeployQueue < 0 {
		return fmt.Errorf("DEPLOY_QUEUE must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES must not be negative")
	}
	if c.Retry.InitialDelay <= 0 || c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("RETRY_INITIAL_DELAY must be positive and not exceed RETRY_MAX_DELAY")
	}
	return nil
}
