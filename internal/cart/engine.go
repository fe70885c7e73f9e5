package cart

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/fjod/go_restaurant/internal/domain"
)

// Engine owns one cart and persists it after every mutation.
type Engine struct {
	mu        sync.Mutex
	key       string
	cart      Cart
	pricing   Pricing
	persister Persister
}

// Open loads the cart stored under key, or starts from an empty cart.
func Open(ctx context.Context, p Persister, key string, pricing Pricing) (*Engine, error) {
	e := &Engine{key: key, cart: Empty(), pricing: pricing, persister: p}

	stored, err := p.Load(ctx, key)
	switch {
	case errors.Is(err, ErrCartNotFound):
	case err != nil:
		return nil, fmt.Errorf("load cart: %w", err)
	default:
		e.cart = *stored
		if e.cart.Items == nil {
			e.cart.Items = []Line{}
		}
	}
	return e, nil
}

func (e *Engine) AddItem(ctx context.Context, item domain.MenuItem) error {
	return e.mutate(ctx, func(c *Cart) { c.AddItem(item) })
}

func (e *Engine) RemoveItem(ctx context.Context, menuItemID int64) error {
	return e.mutate(ctx, func(c *Cart) { c.RemoveItem(menuItemID) })
}

func (e *Engine) UpdateQuantity(ctx context.Context, menuItemID int64, qty int) error {
	return e.mutate(ctx, func(c *Cart) { c.UpdateQuantity(menuItemID, qty) })
}

func (e *Engine) SetDeliveryMethod(ctx context.Context, m domain.DeliveryMethod) error {
	if !m.Valid() {
		return domain.NewValidationError("deliveryMethod", "must be delivery or pickup")
	}
	return e.mutate(ctx, func(c *Cart) { c.DeliveryMethod = m })
}

func (e *Engine) SetPaymentMethod(ctx context.Context, m domain.PaymentMethod) error {
	if !m.Valid() {
		return domain.NewValidationError("paymentMethod", "must be cash or paypal")
	}
	return e.mutate(ctx, func(c *Cart) { c.PaymentMethod = m })
}

func (e *Engine) SetDeliveryAddress(ctx context.Context, address string) error {
	return e.mutate(ctx, func(c *Cart) { c.DeliveryAddress = address })
}

func (e *Engine) Clear(ctx context.Context) error {
	return e.mutate(ctx, func(c *Cart) { c.Clear() })
}

// Snapshot returns a copy of the cart and its derived values.
func (e *Engine) Snapshot() (Cart, Summary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.cart.Clone()
	return c, e.pricing.Summarize(c)
}

func (e *Engine) mutate(ctx context.Context, fn func(*Cart)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.cart)
	if err := e.persister.Save(ctx, e.key, &e.cart); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

const lockStripes = 64

// Manager serialises access to server-held carts so two requests for the same
// cart id never interleave their load-mutate-save cycles.
type Manager struct {
	persister Persister
	pricing   Pricing
	locks     [lockStripes]sync.Mutex
}

func NewManager(p Persister, pricing Pricing) *Manager {
	return &Manager{persister: p, pricing: pricing}
}

func (m *Manager) Pricing() Pricing {
	return m.pricing
}

// With opens the cart for cartID, runs fn against it and returns the resulting state.
func (m *Manager) With(ctx context.Context, cartID string, fn func(*Engine) error) (Cart, Summary, error) {
	l := m.lock(cartID)
	l.Lock()
	defer l.Unlock()

	e, err := Open(ctx, m.persister, SessionKey(cartID), m.pricing)
	if err != nil {
		return Cart{}, Summary{}, err
	}
	if fn != nil {
		if err := fn(e); err != nil {
			c, s := e.Snapshot()
			return c, s, err
		}
	}
	c, s := e.Snapshot()
	return c, s, nil
}

func (m *Manager) lock(cartID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(cartID))
	return &m.locks[h.Sum32()%lockStripes]
}
