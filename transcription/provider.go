// Package transcription defines the speech-to-text backend contract the
// transcript pipeline calls once per window and task.
package transcription

import (
	"context"

	"github.com/kbukum/scribe/provider"
)

// Provider is a speech-to-text backend.
type Provider interface {
	provider.Provider
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
