package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component owns the configured backend's lifecycle.
type Component struct {
	cfg         Config
	providerCfg any
	storage     Storage
	log         *logger.Logger
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, providerCfg any, log *logger.Logger) *Component {
	return &Component{
		cfg:         cfg,
		providerCfg: providerCfg,
		log:         log.WithComponent("storage"),
	}
}

// Storage returns the backend, or nil before Start.
func (c *Component) Storage() Storage { return c.storage }

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(context.Context) error {
	s, err := New(c.cfg, c.providerCfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.storage = nil
	return nil
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.storage == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "storage not initialized"}
	}
	if _, err := c.storage.Exists(ctx, ".health"); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("health probe failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// BucketDescriber is implemented by backend configs that name a bucket.
type BucketDescriber interface {
	GetBucket() string
}

func (c *Component) Describe() component.Description {
	details := "provider=" + c.cfg.Provider
	if bd, ok := c.providerCfg.(BucketDescriber); ok && bd.GetBucket() != "" {
		details += " bucket=" + bd.GetBucket()
	}
	return component.Description{Name: "Storage", Type: "storage", Details: details}
}
