package domain

type EventType string

const (
	EventConnection         EventType = "connection"
	EventPong               EventType = "pong"
	EventPing               EventType = "ping"
	EventOrderCreated       EventType = "order-created"
	EventOrderUpdated       EventType = "order-updated"
	EventReservationCreated EventType = "reservation-created"
	EventReservationUpdated EventType = "reservation-updated"
	EventMenuItemCreated    EventType = "menu-item-created"
	EventMenuItemUpdated    EventType = "menu-item-updated"
	EventMenuItemDeleted    EventType = "menu-item-deleted"
)

// Event is the tagged payload pushed to dashboard subscribers.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

func NewEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data}
}
