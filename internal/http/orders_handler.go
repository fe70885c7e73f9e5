package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/order"
)

type OrderService interface {
	Submit(ctx context.Context, req order.SubmitRequest, id *domain.Identity) (*domain.Order, error)
	Update(ctx context.Context, orderID int64, p order.Patch, id *domain.Identity) (*domain.Order, error)
	Get(ctx context.Context, orderID int64, id *domain.Identity) (*domain.Order, error)
	List(ctx context.Context, id *domain.Identity) ([]*domain.Order, error)
	ListActive(ctx context.Context, id *domain.Identity) ([]*domain.Order, error)
}

type OrdersHandler struct {
	svc     OrderService
	timeout time.Duration
}

func NewOrdersHandler(svc OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{svc: svc, timeout: timeout}
}

type OrderItemRequestDTO struct {
	MenuItemID int64 `json:"menuItemId" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"required,gte=1"`
	// Price is accepted for compatibility and ignored; the catalog price is used.
	Price json.RawMessage `json:"price,omitempty"`
}

type CreateOrderRequestDTO struct {
	DeliveryMethod  string                `json:"deliveryMethod" validate:"required,oneof=delivery pickup"`
	PaymentMethod   string                `json:"paymentMethod" validate:"required,oneof=cash paypal"`
	DeliveryAddress *string               `json:"deliveryAddress"`
	Items           []OrderItemRequestDTO `json:"items" validate:"required,min=1,dive"`
	Status          string                `json:"status" validate:"omitempty,oneof=pending"`
}

type UpdateOrderRequestDTO struct {
	Status           *string `json:"status"`
	PaymentCompleted *bool   `json:"paymentCompleted"`
	PaymentID        *string `json:"paymentId"`
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.List(ctx, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/orders/active
func (h *OrdersHandler) ListActiveOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.ListActive(ctx, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a positive integer")
		return
	}

	o, err := h.svc.Get(ctx, orderID, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := auth.IdentityFrom(r.Context())
	if id == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req CreateOrderRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	submit := order.SubmitRequest{
		DeliveryMethod: domain.DeliveryMethod(req.DeliveryMethod),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		Lines:          make([]order.LineRequest, 0, len(req.Items)),
	}
	if req.DeliveryAddress != nil {
		submit.DeliveryAddress = *req.DeliveryAddress
	}
	for _, it := range req.Items {
		submit.Lines = append(submit.Lines, order.LineRequest{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}

	o, err := h.svc.Submit(ctx, submit, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

// PUT /api/orders/{id}
// A status change goes through the lifecycle rules; paymentCompleted records a payment.
func (h *OrdersHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a positive integer")
		return
	}

	var req UpdateOrderRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	var patch order.Patch
	if req.Status != nil {
		next := domain.OrderStatus(*req.Status)
		patch.Status = &next
	}
	if req.PaymentCompleted != nil && *req.PaymentCompleted {
		ref := ""
		if req.PaymentID != nil {
			ref = *req.PaymentID
		}
		patch.PaymentRef = &ref
	}

	o, err := h.svc.Update(ctx, orderID, patch, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
