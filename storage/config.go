package storage

import "fmt"

// Backend names.
const (
	ProviderLocal  = "local"
	ProviderS3     = "s3"
	ProviderMemory = "memory"
)

const DefaultProvider = ProviderLocal

// Config selects the backend. Backend-specific settings live in the
// backend package's own Config and are passed to New as providerCfg.
type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider" json:"provider"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal, ProviderS3, ProviderMemory:
		return nil
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
}
