package sse

import (
	"context"
	"encoding/json"

	"github.com/kbukum/scribe/recording"
)

// EventStatus carries a recording.Status as JSON.
const EventStatus = "status"

func StatusEvent(st recording.Status) (Event, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: EventStatus, Data: data}, nil
}

// StatusBroadcaster implements recording.StatusPublisher over a Hub.
type StatusBroadcaster struct {
	hub *Hub
}

var _ recording.StatusPublisher = (*StatusBroadcaster)(nil)

func NewStatusBroadcaster(hub *Hub) *StatusBroadcaster {
	return &StatusBroadcaster{hub: hub}
}

// PublishStatus never fails on delivery; a stopped hub or a full queue
// drops the event.
func (b *StatusBroadcaster) PublishStatus(_ context.Context, st recording.Status) error {
	e, err := StatusEvent(st)
	if err != nil {
		return err
	}
	b.hub.Broadcast(e)
	return nil
}
