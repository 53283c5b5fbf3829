package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Closer is satisfied by the producer.
type Closer interface {
	Close() error
}

// Runner is satisfied by the consumer.
type Runner interface {
	Consume(ctx context.Context) error
	Close() error
	Topic() string
}

// Component owns an optional producer and consumers and ties their
// lifetime to the component registry.
type Component struct {
	cfg       Config
	log       *logger.Logger
	producer  Closer
	consumers []Runner
	cancelFn  context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

var _ component.Component = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("kafka"),
	}
}

// SetProducer must be called before Start.
func (c *Component) SetProducer(p Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// AddConsumer must be called before Start.
func (c *Component) AddConsumer(r Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, r)
}

func (c *Component) Name() string { return "kafka" }

// Start runs each consumer in its own goroutine. Start's ctx only bounds
// startup; consumers run until Stop.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	consumeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelFn = cancel

	for _, r := range c.consumers {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := r.Consume(consumeCtx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error("Consumer stopped with error", map[string]interface{}{
					"topic":           r.Topic(),
					logger.FieldError: err.Error(),
				})
			}
		}()
	}

	c.running = true
	c.log.Info("Kafka component started", map[string]interface{}{"consumers": len(c.consumers)})
	return nil
}

// Stop cancels the consumers, waits for their in-flight message, then
// closes readers and the producer.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.log.Info("Kafka component stopping")

	if c.cancelFn != nil {
		c.cancelFn()
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.log.Warn("Kafka consumers did not stop in time")
	}

	var errs []error
	for _, r := range c.consumers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer %s: %w", r.Topic(), err))
		}
	}
	c.consumers = nil

	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", err))
		}
		c.producer = nil
	}

	c.running = false
	return errors.Join(errs...)
}

// Health dials the first broker and asks it for cluster metadata.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !running {
		h.Status, h.Message = component.StatusUnhealthy, "kafka not started"
		return h
	}

	dialer, err := NewDialer(cfg)
	if err != nil {
		h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("dialer: %v", err)
		return h
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("broker unreachable: %v", err)
		return h
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		h.Status, h.Message = component.StatusDegraded, fmt.Sprintf("broker metadata: %v", err)
	}
	return h
}

func (c *Component) Describe() component.Description {
	c.mu.Lock()
	defer c.mu.Unlock()

	details := fmt.Sprintf("brokers=%v topic=%s group=%s", c.cfg.Brokers, c.cfg.Topic, c.cfg.GroupID)
	if len(c.consumers) > 0 {
		details += fmt.Sprintf(" consumers=%d", len(c.consumers))
	}
	if c.producer != nil {
		details += " producer=yes"
	}
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: details,
	}
}

// Config returns the effective configuration after defaults.
func (c *Component) Config() Config { return c.cfg }
