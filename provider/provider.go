// Package provider holds the small generic registry scribe uses to pick
// model backends (transcription, diarization) by name from configuration.
package provider

import "context"

// Provider is implemented by every model backend.
type Provider interface {
	Name() string
	// IsAvailable reports whether the backend can take requests right now.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from its config section.
type Factory[T Provider] func(cfg map[string]any) (T, error)
