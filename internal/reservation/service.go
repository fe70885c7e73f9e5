// Package reservation books tables and follows the same ownership and notification rules as orders.
package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/fjod/go_restaurant/internal/notify"
	"github.com/fjod/go_restaurant/internal/store"
	"go.uber.org/zap"
)

type Service struct {
	repo      store.ReservationRepository
	publisher notify.Publisher
	log       *zap.Logger
}

func NewService(repo store.ReservationRepository, publisher notify.Publisher, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, publisher: publisher, log: log}
}

type CreateInput struct {
	Date            time.Time
	PartySize       int
	FullName        string
	Email           string
	Phone           string
	SpecialRequests *string
}

// Patch carries the fields to change; nil means leave as is.
type Patch struct {
	Date            *time.Time
	PartySize       *int
	FullName        *string
	Email           *string
	Phone           *string
	SpecialRequests *string
	Status          *domain.ReservationStatus
}

func validate(r *domain.Reservation) error {
	v := &domain.ValidationError{}
	if r.Date.IsZero() {
		v.Add("date", "date is required")
	}
	if r.PartySize < 1 {
		v.Add("partySize", "party size must be at least 1")
	}
	if strings.TrimSpace(r.FullName) == "" {
		v.Add("fullName", "full name is required")
	}
	if !strings.Contains(r.Email, "@") {
		v.Add("email", "a valid email is required")
	}
	if strings.TrimSpace(r.Phone) == "" {
		v.Add("phone", "phone is required")
	}
	if !r.Status.Valid() {
		v.Add("status", "unknown reservation status")
	}
	return v.OrNil()
}

func (s *Service) Create(ctx context.Context, in CreateInput, id *domain.Identity) (*domain.Reservation, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	r := &domain.Reservation{
		UserID:          id.UserID,
		Date:            in.Date.UTC(),
		PartySize:       in.PartySize,
		FullName:        strings.TrimSpace(in.FullName),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		SpecialRequests: in.SpecialRequests,
		Status:          domain.ReservationStatusPending,
	}
	if err := validate(r); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateReservation(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	logger.Info(ctx, s.log, "reservation created",
		zap.Int64("reservation_id", created.ID),
		zap.Int("party_size", created.PartySize))
	s.publisher.Publish(ctx, domain.NewEvent(domain.EventReservationCreated, created))
	return created, nil
}

// Update applies p for the owner or an admin. Customers may only cancel, never confirm or complete.
func (s *Service) Update(ctx context.Context, reservationID int64, p Patch, id *domain.Identity) (*domain.Reservation, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	updated, err := s.repo.UpdateReservation(ctx, reservationID, func(r *domain.Reservation) error {
		if !id.CanAccess(r.UserID) {
			return domain.ErrForbidden
		}
		if p.Status != nil && !id.IsAdmin() && *p.Status != domain.ReservationStatusCancelled {
			return fmt.Errorf("%w: only staff can set status %s", domain.ErrForbidden, *p.Status)
		}
		p.apply(r)
		return validate(r)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, s.log, "reservation updated",
		zap.Int64("reservation_id", updated.ID),
		zap.String("status", string(updated.Status)))
	s.publisher.Publish(ctx, domain.NewEvent(domain.EventReservationUpdated, updated))
	return updated, nil
}

func (p Patch) apply(r *domain.Reservation) {
	if p.Date != nil {
		r.Date = p.Date.UTC()
	}
	if p.PartySize != nil {
		r.PartySize = *p.PartySize
	}
	if p.FullName != nil {
		r.FullName = strings.TrimSpace(*p.FullName)
	}
	if p.Email != nil {
		r.Email = strings.TrimSpace(*p.Email)
	}
	if p.Phone != nil {
		r.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.SpecialRequests != nil {
		r.SpecialRequests = p.SpecialRequests
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

func (s *Service) Get(ctx context.Context, reservationID int64, id *domain.Identity) (*domain.Reservation, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	r, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(r.UserID) {
		return nil, domain.ErrForbidden
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, id *domain.Identity) ([]*domain.Reservation, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if id.IsAdmin() {
		return s.repo.ListReservations(ctx)
	}
	return s.repo.ListReservationsByUser(ctx, id.UserID)
}

func (s *Service) ListActive(ctx context.Context, id *domain.Identity) ([]*domain.Reservation, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if !id.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListActiveReservations(ctx)
}
