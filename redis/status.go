package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/recording"
)

// StatusStore keeps the latest controller status of each agent under
// {prefix}:status:{agent} and announces changes on the status channel.
type StatusStore struct {
	client  *Client
	store   *TypedStore[recording.Status]
	agentID string
	log     *logger.Logger
}

var _ recording.StatusPublisher = (*StatusStore)(nil)

func NewStatusStore(client *Client, agentID string, log *logger.Logger) *StatusStore {
	return &StatusStore{
		client:  client,
		store:   NewTypedStore[recording.Status](client, client.cfg.KeyPrefix+":status"),
		agentID: agentID,
		log:     log.WithComponent("redis.status"),
	}
}

// statusEvent is the pub/sub payload.
type statusEvent struct {
	Agent string `json:"agent"`
	recording.Status
}

// PublishStatus saves st for this agent and publishes it. A failed publish
// after a successful save is logged, not returned.
func (s *StatusStore) PublishStatus(ctx context.Context, st recording.Status) error {
	if err := s.store.Save(ctx, s.agentID, &st, s.client.cfg.StatusTTL); err != nil {
		return err
	}

	data, err := json.Marshal(statusEvent{Agent: s.agentID, Status: st})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := s.client.Publish(ctx, s.client.cfg.StatusChannel, data); err != nil {
		s.log.Warn("Status publish failed", logger.ErrorFields("publish", err))
	}
	return nil
}

// LoadStatus returns the last status saved by agentID, or nil when none
// is stored.
func (s *StatusStore) LoadStatus(ctx context.Context, agentID string) (*recording.Status, error) {
	return s.store.Load(ctx, agentID)
}
