// Package notify fans lifecycle events out to connected dashboard sessions.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"go.uber.org/zap"
)

// Publisher is what services emit lifecycle events through. Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// Hub is the live-connection registry. Every registered client receives every event.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{clients: make(map[*Client]struct{}), log: log}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info("subscriber connected", zap.String("remote", c.remote), zap.Int("subscribers", n))
}

// Unregister is idempotent.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.Info("subscriber disconnected", zap.String("remote", c.remote), zap.Int("subscribers", n))
	}
}

// Close disconnects every subscriber. Used on shutdown.
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.Unregister(c)
		c.close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish encodes ev once and enqueues it on every live connection's send queue.
// A connection whose queue is full is dropped; one that is closing is skipped.
func (h *Hub) Publish(ctx context.Context, ev domain.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		logger.Error(ctx, h.log, "encode event failed", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	for _, c := range h.snapshot() {
		if c.enqueue(msg) {
			continue
		}
		if !c.closing() {
			logger.Warn(ctx, h.log, "subscriber too slow, dropping", zap.String("remote", c.remote))
		}
		h.Unregister(c)
		c.close()
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// MultiPublisher forwards every event to each wrapped publisher in order.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev domain.Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, domain.Event) {}
