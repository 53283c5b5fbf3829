package local

import "fmt"

// DefaultBasePath is where recordings land when nothing is configured.
const DefaultBasePath = "./data"

// Config is the local backend's section.
type Config struct {
	BasePath string `yaml:"base_path" mapstructure:"base_path" json:"base_path"`
}

func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
}

func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("local: base_path is required")
	}
	return nil
}
