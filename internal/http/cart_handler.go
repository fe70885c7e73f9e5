package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/cart"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/fjod/go_restaurant/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type MenuCatalog interface {
	GetMenuItem(ctx context.Context, itemID int64) (*domain.MenuItem, error)
}

type OrderSubmitter interface {
	Submit(ctx context.Context, req order.SubmitRequest, id *domain.Identity) (*domain.Order, error)
}

// CartHandler exposes the server-held cart keyed by the cart session cookie.
type CartHandler struct {
	carts   *cart.Manager
	catalog MenuCatalog
	orders  OrderSubmitter
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(carts *cart.Manager, catalog MenuCatalog, orders OrderSubmitter, timeout time.Duration, log *zap.Logger) *CartHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartHandler{carts: carts, catalog: catalog, orders: orders, timeout: timeout, log: log}
}

type CartResponseDTO struct {
	Items           []cart.Line           `json:"items"`
	DeliveryMethod  domain.DeliveryMethod `json:"deliveryMethod"`
	PaymentMethod   domain.PaymentMethod  `json:"paymentMethod"`
	DeliveryAddress string                `json:"deliveryAddress"`
	CartCount       int                   `json:"cartCount"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	DeliveryFee     decimal.Decimal       `json:"deliveryFee"`
	Tax             decimal.Decimal       `json:"tax"`
	Total           decimal.Decimal       `json:"total"`
}

func toCartResponse(c cart.Cart, s cart.Summary) CartResponseDTO {
	return CartResponseDTO{
		Items:           c.Items,
		DeliveryMethod:  c.DeliveryMethod,
		PaymentMethod:   c.PaymentMethod,
		DeliveryAddress: c.DeliveryAddress,
		CartCount:       s.Count,
		Subtotal:        s.Subtotal,
		DeliveryFee:     s.DeliveryFee,
		Tax:             s.Tax,
		Total:           s.Total,
	}
}

type AddCartItemRequestDTO struct {
	MenuItemID int64 `json:"menuItemId" validate:"gt=0"`
}

type UpdateCartItemRequestDTO struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type DeliveryMethodRequestDTO struct {
	DeliveryMethod string `json:"deliveryMethod" validate:"required,oneof=delivery pickup"`
}

type PaymentMethodRequestDTO struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cash paypal"`
}

type DeliveryAddressRequestDTO struct {
	DeliveryAddress string `json:"deliveryAddress"`
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, c cart.Cart, s cart.Summary, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c, s))
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), nil)
	h.respond(w, r, c, s, err)
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddCartItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	item, err := h.catalog.GetMenuItem(ctx, req.MenuItemID)
	if domain.IsNotFound(err) || (err == nil && !item.Available) {
		handleServiceError(w, r, domain.NewValidationError("menuItemId", "menu item is not available"))
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		return e.AddItem(ctx, *item)
	})
	h.respond(w, r, c, s, err)
}

// PUT /api/cart/items/{menuItemId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := pathID(r, "menuItemId")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu item id must be a positive integer")
		return
	}
	var req UpdateCartItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		return e.UpdateQuantity(ctx, itemID, *req.Quantity)
	})
	h.respond(w, r, c, s, err)
}

// DELETE /api/cart/items/{menuItemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := pathID(r, "menuItemId")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu item id must be a positive integer")
		return
	}
	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		return e.RemoveItem(ctx, itemID)
	})
	h.respond(w, r, c, s, err)
}

// PUT /api/cart/delivery
func (h *CartHandler) SetDeliveryMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req DeliveryMethodRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		return e.SetDeliveryMethod(ctx, domain.DeliveryMethod(req.DeliveryMethod))
	})
	h.respond(w, r, c, s, err)
}

// PUT /api/cart/payment
func (h *CartHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PaymentMethodRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		return e.SetPaymentMethod(ctx, domain.PaymentMethod(req.PaymentMethod))
	})
	h.respond(w, r, c, s, err)
}

// PUT /api/cart/address
func (h *CartHandler) SetDeliveryAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req DeliveryAddressRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		return e.SetDeliveryAddress(ctx, req.DeliveryAddress)
	})
	h.respond(w, r, c, s, err)
}

// DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, s, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		return e.Clear(ctx)
	})
	h.respond(w, r, c, s, err)
}

// POST /api/cart/checkout
// The cart is cleared only after the order has been created.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := auth.IdentityFrom(r.Context())
	if id == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var created *domain.Order
	_, _, err := h.carts.With(ctx, cartIDFrom(r.Context()), func(e *cart.Engine) error {
		c, _ := e.Snapshot()
		o, err := h.orders.Submit(ctx, order.FromCart(c), id)
		if err != nil {
			return err
		}
		created = o
		return e.Clear(ctx)
	})
	switch {
	case created == nil:
		handleServiceError(w, r, err)
		return
	case err != nil:
		logger.Warn(r.Context(), h.log, "order created but cart not cleared",
			zap.Int64("order_id", created.ID), zap.Error(err))
	}
	respondJSON(w, http.StatusCreated, created)
}
