package transcription

import (
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
)

func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}

// NewManager returns a manager over a fresh registry. A nil selector picks
// the first healthy backend.
func NewManager(selector provider.Selector[Provider], log *logger.Logger) *provider.Manager[Provider] {
	return provider.NewManager(NewRegistry(), selector, log)
}
