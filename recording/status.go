package recording

import (
	"context"
	"errors"
	"time"
)

// State is the controller's lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
)

// Status is a snapshot of the controller.
type Status struct {
	State     State      `json:"state"`
	MeetingID string     `json:"meeting_id,omitempty"`
	SinkKey   string     `json:"sink_key,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// StatusPublisher receives every state transition. Publishing is best effort.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, s Status) error
}

// StatusPublishers sends each status to every publisher in order.
type StatusPublishers []StatusPublisher

func (ps StatusPublishers) PublishStatus(ctx context.Context, s Status) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishStatus(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
