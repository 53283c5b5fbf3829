// Package diarization defines the speaker diarization backend contract.
package diarization

import (
	"context"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
)

// Provider splits audio into speaker turns.
type Provider interface {
	provider.Provider
	Diarize(ctx context.Context, req Request) (*Response, error)
}

func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}

func NewManager(selector provider.Selector[Provider], log *logger.Logger) *provider.Manager[Provider] {
	return provider.NewManager(NewRegistry(), selector, log)
}
