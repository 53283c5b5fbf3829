package bootstrap

import "github.com/kbukum/scribe/config"

// Config is satisfied by any struct embedding config.ServiceConfig that
// overrides ApplyDefaults and Validate for its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
