package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/logger"
)

type mockProducer struct {
	closed atomic.Bool
}

func (m *mockProducer) Close() error {
	m.closed.Store(true)
	return nil
}

type mockConsumer struct {
	topic      string
	consumed   chan struct{}
	closeCalls atomic.Int32
}

func (m *mockConsumer) Consume(ctx context.Context) error {
	close(m.consumed)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockConsumer) Close() error {
	m.closeCalls.Add(1)
	return nil
}

func (m *mockConsumer) Topic() string { return m.topic }

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()

	if cfg.Topic != "scribe.commands" || cfg.GroupID != "scribe-agent" {
		t.Errorf("topic/group = %q/%q", cfg.Topic, cfg.GroupID)
	}
	if cfg.Retry == nil || cfg.Retry.RetryIf == nil {
		t.Fatal("retry defaults not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad compression", func(c *Config) { c.Compression = "brotli" }},
		{"bad sasl", func(c *Config) { c.EnableSASL, c.SASLMechanism, c.Username = true, "GSSAPI", "u" }},
		{"sasl without user", func(c *Config) { c.EnableSASL = true }},
		{"no brokers", func(c *Config) { c.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Enabled: true}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	disabled := Config{}
	if err := disabled.Validate(); err != nil {
		t.Errorf("disabled config: %v", err)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("write: %w", context.DeadlineExceeded), false},
		{kafkago.LeaderNotAvailable, true},
		{kafkago.MessageSizeTooLarge, false},
		{errors.New("dial tcp 10.0.0.1:9092: connect: connection refused"), true},
		{io.ErrUnexpectedEOF, true},
		{errors.New("invalid payload"), false},
		{kafkago.WriteErrors{kafkago.NotEnoughReplicas, nil}, true},
		{kafkago.WriteErrors{kafkago.NotEnoughReplicas, kafkago.TopicAuthorizationFailed}, false},
	}
	for _, tt := range tests {
		if got := IsRetryableError(tt.err); got != tt.want {
			t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestHeaders(t *testing.T) {
	msg := kafkago.Message{Headers: Headers(map[string]string{
		HeaderCorrelationID: "c-1",
		HeaderContentType:   "text/plain",
	})}

	if got := Header(msg, HeaderContentType); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
	if got := Header(msg, HeaderCorrelationID); got != "c-1" {
		t.Errorf("correlation id = %q", got)
	}
	if got := Header(msg, "missing"); got != "" {
		t.Errorf("missing header = %q", got)
	}
	if len(msg.Headers) != 2 {
		t.Errorf("headers = %d, want 2", len(msg.Headers))
	}
}

func TestCompression(t *testing.T) {
	if Compression("gzip") != kafkago.Gzip {
		t.Error("gzip not mapped")
	}
	if Compression("none") != 0 || Compression("other") != 0 {
		t.Error("unknown codec should mean no compression")
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	comp := NewComponent(Config{Enabled: true}, logger.NewNop())
	prod := &mockProducer{}
	cons := &mockConsumer{topic: "scribe.commands", consumed: make(chan struct{})}
	comp.SetProducer(prod)
	comp.AddConsumer(cons)

	if h := comp.Health(context.Background()); h.Status != "unhealthy" {
		t.Errorf("health before start = %s", h.Status)
	}

	// A cancelled start context must not stop the consumers.
	startCtx, cancel := context.WithCancel(context.Background())
	if err := comp.Start(startCtx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	select {
	case <-cons.consumed:
	case <-time.After(time.Second):
		t.Fatal("consumer not started")
	}

	ctx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if cons.closeCalls.Load() != 1 {
		t.Errorf("consumer Close calls = %d", cons.closeCalls.Load())
	}
	if !prod.closed.Load() {
		t.Error("producer not closed")
	}
	if err := comp.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(Config{Brokers: []string{"b1:9092"}}, logger.NewNop())
	comp.SetProducer(&mockProducer{})
	d := comp.Describe()
	if d.Type != "kafka" {
		t.Errorf("type = %q", d.Type)
	}
	want := "brokers=[b1:9092] topic=scribe.commands group=scribe-agent producer=yes"
	if d.Details != want {
		t.Errorf("details = %q, want %q", d.Details, want)
	}
}
