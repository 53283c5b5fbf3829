// Package producer publishes JSON messages with retries on transient
// broker errors.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// Writer is the subset of *kafkago.Writer the producer drives.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer wraps a kafka-go Writer with TLS/SASL and retries.
type Producer struct {
	writer Writer
	retry  resilience.RetryConfig
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// New creates a producer. The writer connects lazily on the first send, so
// New does not fail when the broker is down.
func New(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}

	transport, err := kafka.NewTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}

	plog := log.WithComponent("kafka.producer")
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  kafka.Compression(cfg.Compression),
		WriteTimeout: cfg.WriteTimeout,
		// Retries are owned by Send.
		MaxAttempts: 1,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}

	plog.Info("Kafka producer initialized", map[string]interface{}{
		"brokers":     cfg.Brokers,
		"compression": cfg.Compression,
	})
	return NewWithWriter(w, *cfg.Retry, log), nil
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w Writer, retry resilience.RetryConfig, log *logger.Logger) *Producer {
	if retry.RetryIf == nil {
		retry.RetryIf = kafka.IsRetryableError
	}
	return &Producer{writer: w, retry: retry, log: log.WithComponent("kafka.producer")}
}

// Send writes msgs, retrying transient failures.
func (p *Producer) Send(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}

	retry := p.retry
	retry.OnRetry = func(attempt int, err error, _ time.Duration) {
		p.log.Warn("Kafka write failed, retrying", map[string]interface{}{
			logger.FieldError: err.Error(),
			"attempt":         attempt,
		})
	}
	return resilience.RetryFunc(ctx, retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
}

// SendJSON marshals value and sends it to topic under key with the given
// extra headers.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return p.Send(ctx, kafkago.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: kafka.Headers(headers),
	})
}

// Close flushes pending writes and shuts the producer down.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
