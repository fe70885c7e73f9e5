package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed,
		ReservationStatusCompleted, ReservationStatusCancelled:
		return true
	}
	return false
}

type Reservation struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"userId"`
	Date            time.Time         `json:"date"`
	PartySize       int               `json:"partySize"`
	FullName        string            `json:"fullName"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	SpecialRequests *string           `json:"specialRequests"`
	Status          ReservationStatus `json:"status"`
}

func (r *Reservation) Active() bool {
	return r.Status != ReservationStatusCompleted && r.Status != ReservationStatusCancelled
}
