package main

import (
	"fmt"

	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/storage/backends"
	"github.com/kbukum/scribe/version"
)

const serviceName = "scribectl"

// CtlConfig points the CLI at the same database, sink, broker and status
// store the agent uses.
type CtlConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// AgentID is the agent `status` reports on by default.
	AgentID string `yaml:"agent_id" mapstructure:"agent_id"`

	Storage  backends.Config `yaml:"storage" mapstructure:"storage"`
	Database database.Config `yaml:"database" mapstructure:"database"`
	Redis    redis.Config    `yaml:"redis" mapstructure:"redis"`
	Kafka    kafka.Config    `yaml:"kafka" mapstructure:"kafka"`
}

func (c *CtlConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	c.ServiceConfig.ApplyDefaults()
	// The CLI has nothing to run without its meeting table.
	c.Database.Enabled = true
	c.Storage.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
}

func (c *CtlConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}
