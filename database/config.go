package database

import (
	"fmt"
	"time"
)

// Config is the database section of the agent config.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DSN is the sqlite database path, with optional query parameters.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	// MaxOpenConns defaults to 1, which serializes sqlite writers.
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	MaxRetries      int           `yaml:"max_retries" mapstructure:"max_retries"`

	// Migrate applies embedded migrations on Start.
	Migrate bool `yaml:"migrate" mapstructure:"migrate"`

	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	// LogLevel is silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

func (c *Config) ApplyDefaults() {
	if c.DSN == "" {
		c.DSN = "scribe.db"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 1
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	switch c.LogLevel {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("database.log_level must be silent, error, warn or info (got: %s)", c.LogLevel)
	}
	return nil
}
