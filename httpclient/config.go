package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/scribe/resilience"
)

// Config configures a Client for one backend.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry is applied to Do when set. Only retryable errors are retried.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Breaker guards the backend when set.
	Breaker *resilience.CircuitBreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retry != nil && c.Retry.RetryIf == nil {
		c.Retry.RetryIf = IsRetryable
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("httpclient: base_url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return nil
}
