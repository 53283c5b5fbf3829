// Package backends selects one of the built-in sink backends from config.
// Importing it registers the local and s3 factories.
package backends

import (
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/storage/local"
	"github.com/kbukum/scribe/storage/s3"

	_ "github.com/kbukum/scribe/storage/memory"
)

// Config is the storage section of a binary's config.
type Config struct {
	storage.Config `yaml:",inline" mapstructure:",squash"`
	Local          local.Config `yaml:"local" mapstructure:"local"`
	S3             s3.Config    `yaml:"s3" mapstructure:"s3"`
}

// Backend returns the settings of the selected backend, or nil for one
// that takes none.
func (c *Config) Backend() any {
	switch c.Provider {
	case storage.ProviderLocal:
		return &c.Local
	case storage.ProviderS3:
		return &c.S3
	default:
		return nil
	}
}

// NewComponent returns a storage component for the selected backend.
func NewComponent(cfg *Config, log *logger.Logger) *storage.Component {
	return storage.NewComponent(cfg.Config, cfg.Backend(), log)
}
