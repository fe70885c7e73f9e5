package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_restaurant/internal/payment"
	"github.com/go-chi/chi/v5"
)

type PaymentGateway interface {
	Setup(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.Result, error)
	CaptureOrder(ctx context.Context, orderID string) (*payment.Result, error)
}

type PayPalHandler struct {
	gateway PaymentGateway
	timeout time.Duration
}

func NewPayPalHandler(gateway PaymentGateway, timeout time.Duration) *PayPalHandler {
	return &PayPalHandler{gateway: gateway, timeout: timeout}
}

type PayPalOrderRequestDTO struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
	Intent   string `json:"intent" validate:"required"`
}

type PayPalSetupDTO struct {
	ClientToken string `json:"clientToken"`
}

// writeResult relays the gateway's body and status unchanged.
func writeResult(w http.ResponseWriter, res *payment.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}

// GET /paypal/setup
func (h *PayPalHandler) Setup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token, err := h.gateway.Setup(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PayPalSetupDTO{ClientToken: token})
}

// POST /paypal/order
func (h *PayPalHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PayPalOrderRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	res, err := h.gateway.CreateOrder(ctx, payment.CreateOrderRequest(req))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeResult(w, res)
}

// POST /paypal/order/{id}/capture
func (h *PayPalHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.gateway.CaptureOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeResult(w, res)
}
