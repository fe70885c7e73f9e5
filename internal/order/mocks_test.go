package order

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// failingOrders fails every create, to check nothing is published.
type failingOrders struct {
	*store.MemoryStore
}

func (failingOrders) CreateOrder(context.Context, *domain.Order) (*domain.Order, error) {
	return nil, errors.New("disk full")
}

type brokenCatalog struct{}

func (brokenCatalog) GetMenuItem(context.Context, int64) (*domain.MenuItem, error) {
	return nil, domain.ErrTransientIO
}
