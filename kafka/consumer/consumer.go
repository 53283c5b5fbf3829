// Package consumer reads one topic through a consumer group and hands each
// message to a handler before committing it. Only one message is in flight.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// Handler processes one message. A returned error is logged and the message
// is committed anyway.
type Handler func(ctx context.Context, msg kafkago.Message) error

// Reader is the subset of *kafkago.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer runs the fetch, handle, commit loop.
type Consumer struct {
	reader  Reader
	handler Handler
	topic   string
	groupID string
	backoff resilience.RetryConfig
	log     *logger.Logger
}

// New creates a group consumer for cfg.Topic.
func New(cfg kafka.Config, handler Handler, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}

	dialer, err := kafka.NewDialer(cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.LastOffset,
		MinBytes:          1,
		MaxBytes:          1 << 20,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), map[string]interface{}{
				"topic": cfg.Topic,
			})
		}),
	})

	clog.Info("Kafka consumer initialized", map[string]interface{}{
		"topic":   cfg.Topic,
		"groupID": cfg.GroupID,
		"brokers": cfg.Brokers,
	})
	return NewWithReader(reader, cfg.Topic, cfg.GroupID, handler, log), nil
}

// NewWithReader wraps an existing reader.
func NewWithReader(r Reader, topic, groupID string, handler Handler, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		handler: handler,
		topic:   topic,
		groupID: groupID,
		backoff: resilience.RetryConfig{
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			BackoffFactor:  2,
			Jitter:         0.2,
		},
		log: log.WithComponent("kafka.consumer"),
	}
}

// Consume blocks until ctx ends. Fetch failures are retried with backoff.
// A message is committed only after its handler returns.
func (c *Consumer) Consume(ctx context.Context) error {
	c.log.Info("Starting consume loop", map[string]interface{}{
		"topic":   c.topic,
		"groupID": c.groupID,
	})

	failures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The reader returns io.EOF once closed.
			if errors.Is(err, io.EOF) || errors.Is(err, kafkago.ErrGroupClosed) {
				return nil
			}
			failures++
			if waitErr := c.wait(ctx, failures, err); waitErr != nil {
				return waitErr
			}
			continue
		}
		failures = 0

		c.handle(ctx, msg)

		// Commit with a context that survives shutdown so a handled
		// message is not redelivered to the next worker.
		if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			c.log.Error("Commit failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				"topic":           msg.Topic,
				"partition":       msg.Partition,
				"offset":          msg.Offset,
			})
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Message handler panicked", map[string]interface{}{
				"panic":  fmt.Sprintf("%v", r),
				"offset": msg.Offset,
			})
		}
	}()
	if err := c.handler(ctx, msg); err != nil {
		c.log.Error("Message processing failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"topic":           msg.Topic,
			"partition":       msg.Partition,
			"offset":          msg.Offset,
		})
	}
}

func (c *Consumer) wait(ctx context.Context, failures int, err error) error {
	d := resilience.Backoff(failures, c.backoff)
	if failures <= 3 {
		c.log.Error("Kafka fetch error", map[string]interface{}{
			logger.FieldError: err.Error(),
			"failures":        failures,
			"retry_in":        d.String(),
			"topic":           c.topic,
		})
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Consumer) Topic() string { return c.topic }

// Close shuts down the reader and leaves the group.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing", map[string]interface{}{
		"topic":   c.topic,
		"groupID": c.groupID,
	})
	return c.reader.Close()
}
