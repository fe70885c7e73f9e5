package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
)

func reservationBody() CreateReservationRequestDTO {
	return CreateReservationRequestDTO{
		Date:      time.Date(2026, 11, 20, 19, 30, 0, 0, time.UTC),
		PartySize: 4,
		FullName:  "Dana Diner",
		Email:     "dana@example.com",
		Phone:     "555-0100",
	}
}

func TestReservations_CreateAndAuthorize(t *testing.T) {
	s := newTestServer(t)
	dana := s.register(t, "dana")
	eve := s.register(t, "eve")
	admin := s.admin(t)

	expectStatus(t, s.do(t, http.MethodPost, "/api/reservations", reservationBody()), http.StatusUnauthorized)

	rec := s.do(t, http.MethodPost, "/api/reservations", reservationBody(), dana)
	expectStatus(t, rec, http.StatusCreated)
	res := decode[domain.Reservation](t, rec)
	if res.Status != domain.ReservationStatusPending {
		t.Errorf("expected pending, got %s", res.Status)
	}
	path := "/api/reservations/" + itoa(res.ID)

	expectStatus(t, s.do(t, http.MethodGet, path, nil, eve), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, path, nil, dana), http.StatusOK)

	if got := decode[[]domain.Reservation](t, s.do(t, http.MethodGet, "/api/reservations", nil, eve)); len(got) != 0 {
		t.Errorf("eve should not see dana's reservation")
	}
	expectStatus(t, s.do(t, http.MethodGet, "/api/reservations/active", nil, dana), http.StatusForbidden)
	if got := decode[[]domain.Reservation](t, s.do(t, http.MethodGet, "/api/reservations/active", nil, admin)); len(got) != 1 {
		t.Errorf("expected one active reservation, got %d", len(got))
	}

	// Customers may cancel but not confirm.
	expectStatus(t, s.do(t, http.MethodPut, path, map[string]string{"status": "confirmed"}, dana), http.StatusForbidden)
	rec = s.do(t, http.MethodPut, path, map[string]any{"partySize": 6}, dana)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[domain.Reservation](t, rec); got.PartySize != 6 {
		t.Errorf("expected party size 6, got %d", got.PartySize)
	}

	rec = s.do(t, http.MethodPut, path, map[string]string{"status": "confirmed"}, admin)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[domain.Reservation](t, rec); got.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected confirmed, got %s", got.Status)
	}

	rec = s.do(t, http.MethodPut, path, map[string]string{"status": "cancelled"}, dana)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]domain.Reservation](t, s.do(t, http.MethodGet, "/api/reservations/active", nil, admin)); len(got) != 0 {
		t.Errorf("cancelled reservation should not be active")
	}
}

func TestReservations_Validation(t *testing.T) {
	s := newTestServer(t)
	dana := s.register(t, "dana")

	body := reservationBody()
	body.PartySize = 0
	body.Email = "not-an-email"
	rec := s.do(t, http.MethodPost, "/api/reservations", body, dana)
	expectStatus(t, rec, http.StatusBadRequest)
	resp := decode[ErrorResponse](t, rec)
	for _, f := range []string{"partySize", "email"} {
		if _, ok := resp.Fields[f]; !ok {
			t.Errorf("expected error on %s, got %v", f, resp.Fields)
		}
	}

	rec = s.do(t, http.MethodPost, "/api/reservations", map[string]any{
		"date": "tomorrow", "partySize": 2, "fullName": "x", "email": "x@example.com", "phone": "1",
	}, dana)
	expectStatus(t, rec, http.StatusBadRequest)

	created := decode[domain.Reservation](t, s.do(t, http.MethodPost, "/api/reservations", reservationBody(), dana))
	rec = s.do(t, http.MethodPut, "/api/reservations/"+itoa(created.ID), map[string]string{"status": "seated"}, dana)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestListReservations_EmptyArray(t *testing.T) {
	s := newTestServer(t)
	admin := s.admin(t)

	rec := s.do(t, http.MethodGet, "/api/reservations", nil, admin)
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %s", rec.Body.String())
	}
}
