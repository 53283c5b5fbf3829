package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/storage/backends"
	"github.com/kbukum/scribe/transcript"
	"github.com/kbukum/scribe/version"
)

const serviceName = "scribe-agent"

// AgentConfig is the full configuration of the agent binary.
type AgentConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// AgentID names this agent in published status. Defaults to the hostname.
	AgentID string `yaml:"agent_id" mapstructure:"agent_id"`
	// StopTimeout bounds finalizing a recording after a stop command.
	StopTimeout time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout"`
	// ShutdownTimeout bounds the whole shutdown sequence.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	Recorder      recording.Config     `yaml:"recorder" mapstructure:"recorder"`
	Transcript    transcript.Config    `yaml:"transcript" mapstructure:"transcript"`
	Storage       backends.Config      `yaml:"storage" mapstructure:"storage"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

func (c *AgentConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.ServiceConfig.ApplyDefaults()

	if c.AgentID == "" {
		c.AgentID = hostname()
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	c.Recorder.ApplyDefaults()
	c.Transcript.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

func (c *AgentConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if !c.Database.Enabled {
		return fmt.Errorf("database.enabled must be true: the agent records meeting state")
	}
	if !c.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled must be true: the agent receives commands from kafka")
	}
	validators := []struct {
		name string
		fn   func() error
	}{
		{"recorder", c.Recorder.Validate},
		{"transcript", c.Transcript.Validate},
		{"storage", c.Storage.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"kafka", c.Kafka.Validate},
		{"server", c.Server.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return serviceName
	}
	return h
}
