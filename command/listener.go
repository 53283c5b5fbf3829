package command

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
)

// Controller is the recording controller as the listener sees it.
type Controller interface {
	Start(ctx context.Context, meetingID string) error
	Stop(ctx context.Context) error
}

// Listener applies commands to the controller. Its Handle method is the
// consumer handler: every message is acknowledged whatever the outcome, so
// a rejected command is never redelivered.
type Listener struct {
	ctrl        Controller
	stopTimeout time.Duration
	log         *logger.Logger
}

// NewListener creates a listener. stopTimeout bounds how long a stop
// command waits for the recording to be finalized.
func NewListener(ctrl Controller, stopTimeout time.Duration, log *logger.Logger) *Listener {
	if stopTimeout <= 0 {
		stopTimeout = 2 * time.Minute
	}
	return &Listener{ctrl: ctrl, stopTimeout: stopTimeout, log: log.WithComponent("command.listener")}
}

// Handle decodes msg and dispatches it. The returned error is for logging
// only.
func (l *Listener) Handle(ctx context.Context, msg kafkago.Message) error {
	if id := kafka.Header(msg, kafka.HeaderCorrelationID); id != "" {
		ctx = logger.ContextWithCorrelationID(ctx, id)
	}

	cmd, err := Decode(msg.Value)
	if err != nil {
		return fmt.Errorf("offset %d: %w", msg.Offset, err)
	}
	return l.Dispatch(ctx, cmd)
}

// Dispatch runs one decoded command.
func (l *Listener) Dispatch(ctx context.Context, cmd Command) error {
	ctx = logger.ContextWithMeetingID(ctx, cmd.MeetingID)
	log := l.log.WithContext(ctx)
	log.Info("Command received", map[string]interface{}{logger.FieldCommand: string(cmd.Cmd)})

	switch cmd.Cmd {
	case Start:
		// Start returns once capture is running; the recording continues
		// in the background.
		if err := l.ctrl.Start(ctx, cmd.MeetingID); err != nil {
			return fmt.Errorf("start %s: %w", cmd.MeetingID, err)
		}
		return nil

	case Stop:
		stopCtx, cancel := context.WithTimeout(ctx, l.stopTimeout)
		defer cancel()
		started := time.Now()
		if err := l.ctrl.Stop(stopCtx); err != nil {
			return fmt.Errorf("stop %s: %w", cmd.MeetingID, err)
		}
		log.Info("Recording stopped", logger.DurationFields("stop", time.Since(started)))
		return nil

	case Cancel:
		log.Info("Cancel is not supported, ignoring")
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd.Cmd)
	}
}
