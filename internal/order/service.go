// Package order turns carts into orders and drives them through their status lifecycle.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_restaurant/internal/cart"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/fjod/go_restaurant/internal/notify"
	"github.com/fjod/go_restaurant/internal/store"
	"go.uber.org/zap"
)

// Catalog is where unit prices are snapshotted from at submission time.
type Catalog interface {
	GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error)
}

type Config struct {
	Pricing cart.Pricing
	// StrictTransitions makes admins obey the state machine too.
	StrictTransitions bool
}

type Service struct {
	orders    store.OrderRepository
	catalog   Catalog
	publisher notify.Publisher
	pricing   cart.Pricing
	strict    bool
	log       *zap.Logger
}

func NewService(orders store.OrderRepository, catalog Catalog, publisher notify.Publisher, cfg Config, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		orders:    orders,
		catalog:   catalog,
		publisher: publisher,
		pricing:   cfg.Pricing,
		strict:    cfg.StrictTransitions,
		log:       log,
	}
}

type LineRequest struct {
	MenuItemID int64
	Quantity   int
}

type SubmitRequest struct {
	DeliveryMethod  domain.DeliveryMethod
	PaymentMethod   domain.PaymentMethod
	DeliveryAddress string
	Lines           []LineRequest
}

// FromCart builds a submission from a server-held cart. Prices are looked up again on submit.
func FromCart(c cart.Cart) SubmitRequest {
	req := SubmitRequest{
		DeliveryMethod:  c.DeliveryMethod,
		PaymentMethod:   c.PaymentMethod,
		DeliveryAddress: c.DeliveryAddress,
		Lines:           make([]LineRequest, 0, len(c.Items)),
	}
	for _, l := range c.Items {
		req.Lines = append(req.Lines, LineRequest{MenuItemID: l.MenuItem.ID, Quantity: l.Quantity})
	}
	return req
}

func (r SubmitRequest) validate() *domain.ValidationError {
	v := &domain.ValidationError{}
	if !r.DeliveryMethod.Valid() {
		v.Add("deliveryMethod", "must be delivery or pickup")
	}
	if !r.PaymentMethod.Valid() {
		v.Add("paymentMethod", "must be cash or paypal")
	}
	if r.DeliveryMethod == domain.DeliveryMethodDelivery && strings.TrimSpace(r.DeliveryAddress) == "" {
		v.Add("deliveryAddress", "delivery address is required for delivery orders")
	}
	if len(r.Lines) == 0 {
		v.Add("items", "order must contain at least one item")
	}
	for i, l := range r.Lines {
		if l.Quantity < 1 {
			v.Add(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	return v
}

// Submit validates the request, snapshots catalog prices, persists the order with its
// lines atomically and announces it. Nothing is persisted or published on failure.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, id *domain.Identity) (*domain.Order, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	v := req.validate()
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	c := cart.Cart{DeliveryMethod: req.DeliveryMethod, PaymentMethod: req.PaymentMethod}
	for i, l := range req.Lines {
		item, err := s.catalog.GetMenuItem(ctx, l.MenuItemID)
		field := fmt.Sprintf("items[%d].menuItemId", i)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			v.Add(field, "menu item does not exist")
			continue
		case err != nil:
			return nil, fmt.Errorf("look up menu item %d: %w", l.MenuItemID, err)
		case !item.Available:
			v.Add(field, "menu item is not available")
			continue
		}
		c.Items = appendLine(c.Items, *item, l.Quantity)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	summary := s.pricing.Summarize(c)
	o := &domain.Order{
		UserID:         id.UserID,
		Status:         domain.OrderStatusPending,
		Total:          summary.Total,
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  req.PaymentMethod,
		Items:          make([]domain.OrderLine, 0, len(c.Items)),
	}
	if addr := strings.TrimSpace(req.DeliveryAddress); addr != "" {
		o.DeliveryAddress = &addr
	}
	for _, l := range c.Items {
		o.Items = append(o.Items, domain.OrderLine{
			MenuItemID: l.MenuItem.ID,
			Quantity:   l.Quantity,
			Price:      l.MenuItem.Price,
		})
	}

	created, err := s.orders.CreateOrder(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	logger.Info(ctx, s.log, "order submitted",
		zap.Int64("order_id", created.ID),
		zap.Int64("user_id", created.UserID),
		zap.String("total", created.Total.StringFixed(2)))
	s.publisher.Publish(ctx, domain.NewEvent(domain.EventOrderCreated, created))
	return created, nil
}

// appendLine keeps lines unique by menu item, summing quantities.
func appendLine(lines []cart.Line, item domain.MenuItem, qty int) []cart.Line {
	for i := range lines {
		if lines[i].MenuItem.ID == item.ID {
			lines[i].Quantity += qty
			return lines
		}
	}
	return append(lines, cart.Line{MenuItem: item, Quantity: qty})
}

// Patch is a set of changes applied to an order together. Nil fields are left alone.
type Patch struct {
	Status *domain.OrderStatus
	// PaymentRef marks the order paid with the provider's reference.
	PaymentRef *string
}

// Update applies p in one store update and publishes a single order-updated event.
// Owners are held to the state machine; admins are unrestricted unless strict transitions
// are configured. A rejected field leaves the order untouched.
func (s *Service) Update(ctx context.Context, orderID int64, p Patch, id *domain.Identity) (*domain.Order, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if p.Status == nil && p.PaymentRef == nil {
		return nil, domain.NewValidationError("status", "status or paymentCompleted is required")
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown order status")
	}
	var ref string
	if p.PaymentRef != nil {
		ref = strings.TrimSpace(*p.PaymentRef)
		if ref == "" {
			return nil, domain.NewValidationError("paymentId", "payment reference is required")
		}
	}

	var prev domain.OrderStatus
	updated, err := s.orders.UpdateOrder(ctx, orderID, func(o *domain.Order) error {
		if !id.CanAccess(o.UserID) {
			return domain.ErrForbidden
		}
		prev = o.Status
		next := o.Status
		if p.Status != nil {
			next = *p.Status
			if (s.strict || !id.IsAdmin()) && !o.CanTransitionTo(next) {
				return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, o.Status, next)
			}
		}
		if p.PaymentRef != nil && next == domain.OrderStatusCancelled {
			return fmt.Errorf("%w: order is cancelled", domain.ErrInvalidTransition)
		}
		o.Status = next
		if p.PaymentRef != nil {
			o.PaymentCompleted = true
			o.PaymentID = &ref
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if prev != updated.Status {
		logger.Info(ctx, s.log, "order status changed",
			zap.Int64("order_id", updated.ID),
			zap.String("from", string(prev)),
			zap.String("to", string(updated.Status)))
	}
	if p.PaymentRef != nil {
		logger.Info(ctx, s.log, "order payment completed", zap.Int64("order_id", updated.ID))
	}
	s.publisher.Publish(ctx, domain.NewEvent(domain.EventOrderUpdated, updated))
	return updated, nil
}

// Transition moves an order to next.
func (s *Service) Transition(ctx context.Context, orderID int64, next domain.OrderStatus, id *domain.Identity) (*domain.Order, error) {
	return s.Update(ctx, orderID, Patch{Status: &next}, id)
}

// CompletePayment records the payment reference returned by the payment provider.
func (s *Service) CompletePayment(ctx context.Context, orderID int64, paymentRef string, id *domain.Identity) (*domain.Order, error) {
	return s.Update(ctx, orderID, Patch{PaymentRef: &paymentRef}, id)
}

func (s *Service) Get(ctx context.Context, orderID int64, id *domain.Identity) (*domain.Order, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(o.UserID) {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

// List returns every order to admins and only their own orders to everyone else.
func (s *Service) List(ctx context.Context, id *domain.Identity) ([]*domain.Order, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if id.IsAdmin() {
		return s.orders.ListOrders(ctx)
	}
	return s.orders.ListOrdersByUser(ctx, id.UserID)
}

func (s *Service) ListActive(ctx context.Context, id *domain.Identity) ([]*domain.Order, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if !id.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.orders.ListActiveOrders(ctx)
}
