package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
)

// Sender is satisfied by *producer.Producer.
type Sender interface {
	SendJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

// Publisher sends commands on the commands topic, keyed by meeting id so
// that all commands for a meeting land on one partition in order.
type Publisher struct {
	sender Sender
	topic  string
	log    *logger.Logger
}

func NewPublisher(sender Sender, topic string, log *logger.Logger) *Publisher {
	return &Publisher{sender: sender, topic: topic, log: log.WithComponent("command.publisher")}
}

// Publish validates and sends cmd. The correlation id is taken from ctx,
// or generated. Send failures are COMMAND_TRANSPORT_ERROR.
func (p *Publisher) Publish(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	correlationID := logger.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
		ctx = logger.ContextWithCorrelationID(ctx, correlationID)
	}
	log := p.log.WithContext(logger.ContextWithMeetingID(ctx, cmd.MeetingID))

	headers := map[string]string{kafka.HeaderCorrelationID: correlationID}
	if err := p.sender.SendJSON(ctx, p.topic, cmd.MeetingID, cmd, headers); err != nil {
		log.Error("Command publish failed", logger.ErrorFields("publish", err))
		return errors.CommandTransportError(err).WithDetail("cmd", string(cmd.Cmd))
	}
	log.Info("Command published", map[string]interface{}{logger.FieldCommand: string(cmd.Cmd)})
	return nil
}
