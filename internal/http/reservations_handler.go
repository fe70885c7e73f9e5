package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/reservation"
)

type ReservationService interface {
	Create(ctx context.Context, in reservation.CreateInput, id *domain.Identity) (*domain.Reservation, error)
	Update(ctx context.Context, reservationID int64, p reservation.Patch, id *domain.Identity) (*domain.Reservation, error)
	Get(ctx context.Context, reservationID int64, id *domain.Identity) (*domain.Reservation, error)
	List(ctx context.Context, id *domain.Identity) ([]*domain.Reservation, error)
	ListActive(ctx context.Context, id *domain.Identity) ([]*domain.Reservation, error)
}

type ReservationsHandler struct {
	svc     ReservationService
	timeout time.Duration
}

func NewReservationsHandler(svc ReservationService, timeout time.Duration) *ReservationsHandler {
	return &ReservationsHandler{svc: svc, timeout: timeout}
}

type CreateReservationRequestDTO struct {
	Date            time.Time `json:"date" validate:"required"`
	PartySize       int       `json:"partySize" validate:"required,gte=1"`
	FullName        string    `json:"fullName" validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	Phone           string    `json:"phone" validate:"required"`
	SpecialRequests *string   `json:"specialRequests"`
}

type UpdateReservationRequestDTO struct {
	Date            *time.Time `json:"date"`
	PartySize       *int       `json:"partySize" validate:"omitempty,gte=1"`
	FullName        *string    `json:"fullName" validate:"omitempty,min=1"`
	Email           *string    `json:"email" validate:"omitempty,email"`
	Phone           *string    `json:"phone" validate:"omitempty,min=1"`
	SpecialRequests *string    `json:"specialRequests"`
	Status          *string    `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
}

// GET /api/reservations
func (h *ReservationsHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.List(ctx, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/reservations/active
func (h *ReservationsHandler) ListActiveReservations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.ListActive(ctx, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/reservations/{id}
func (h *ReservationsHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reservationID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_reservation_id", "reservation id must be a positive integer")
		return
	}

	res, err := h.svc.Get(ctx, reservationID, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /api/reservations
func (h *ReservationsHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := auth.IdentityFrom(r.Context())
	if id == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req CreateReservationRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.svc.Create(ctx, reservation.CreateInput{
		Date:            req.Date,
		PartySize:       req.PartySize,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		SpecialRequests: req.SpecialRequests,
	}, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// PUT /api/reservations/{id}
func (h *ReservationsHandler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reservationID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_reservation_id", "reservation id must be a positive integer")
		return
	}

	var req UpdateReservationRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	patch := reservation.Patch{
		Date:            req.Date,
		PartySize:       req.PartySize,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		SpecialRequests: req.SpecialRequests,
	}
	if req.Status != nil {
		s := domain.ReservationStatus(*req.Status)
		patch.Status = &s
	}

	res, err := h.svc.Update(ctx, reservationID, patch, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
