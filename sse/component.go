package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/scribe/component"
)

// Component runs a Hub's loop for the lifetime of the application.
type Component struct {
	hub *Hub
	wg  sync.WaitGroup
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(hub *Hub) *Component {
	return &Component{hub: hub}
}

func (c *Component) Hub() *Hub { return c.hub }

func (c *Component) Name() string { return "sse" }

func (c *Component) Start(context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop drops every client so open streams end before the HTTP server
// shuts down.
func (c *Component) Stop(context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "Status stream", Type: "sse", Details: "GET /status/events"}
}
