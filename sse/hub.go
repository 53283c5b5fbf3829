// Package sse streams server-sent events to HTTP clients. A Hub fans each
// broadcast out to every connected client; slow clients lose events rather
// than stall the broadcaster.
package sse

import (
	"sync"
	"time"

	"github.com/kbukum/scribe/logger"
)

const (
	defaultBuffer    = 64
	defaultKeepAlive = 30 * time.Second
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data []byte
}

// Client is one connected stream.
type Client struct {
	id     string
	events chan Event
}

func newClient(id string, buffer int) *Client {
	return &Client{id: id, events: make(chan Event, buffer)}
}

func (c *Client) ID() string { return c.id }

// Events is closed when the hub drops the client.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) send(e Event) bool {
	select {
	case c.events <- e:
		return true
	default:
		return false
	}
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets how many events a client may lag behind.
func WithBuffer(n int) Option {
	return func(h *Hub) { h.buffer = n }
}

// WithKeepAlive sets the interval of keep-alive comments on idle streams.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Hub) { h.keepAlive = d }
}

// Hub owns the client set. Only the Run goroutine mutates it and closes
// client channels.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	stopOnce   sync.Once

	buffer    int
	keepAlive time.Duration
	log       *logger.Logger
}

func NewHub(log *logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		buffer:     defaultBuffer,
		keepAlive:  defaultKeepAlive,
		log:        log.WithComponent("sse"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub's event loop. It returns after Stop, having closed every
// client.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("Stream client registered", map[string]interface{}{"client_id": c.id, "clients": n})

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("Stream client unregistered", map[string]interface{}{"client_id": c.id, "clients": n})

		case e := <-h.broadcast:
			h.fanOut(e)
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues e for every client without blocking. It returns false
// when the hub has stopped or its queue is full.
func (h *Hub) Broadcast(e Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- e:
		return true
	default:
		h.log.Warn("Stream queue full, dropping event", map[string]interface{}{"event": e.Name})
		return false
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanOut(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if !c.send(e) {
			h.log.Warn("Stream client lagging, dropping event", map[string]interface{}{
				"client_id": id,
				"event":     e.Name,
			})
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
}
