package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusOutForDelivery,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodDelivery || m == DeliveryMethodPickup
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodPayPal PaymentMethod = "paypal"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodPayPal
}

type Order struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"userId"`
	Status           OrderStatus     `json:"status"`
	Total            decimal.Decimal `json:"total"`
	CreatedAt        time.Time       `json:"createdAt"`
	DeliveryAddress  *string         `json:"deliveryAddress"`
	DeliveryMethod   DeliveryMethod  `json:"deliveryMethod"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentCompleted bool            `json:"paymentCompleted"`
	PaymentID        *string         `json:"paymentId"`
	Items            []OrderLine     `json:"items"`
}

// OrderLine is immutable once created; Price is the unit price at submission time.
type OrderLine struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"orderId"`
	MenuItemID int64           `json:"menuItemId"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Active orders are the ones the kitchen still has to deal with.
func (o *Order) Active() bool {
	return !o.Status.Terminal()
}

// CanTransitionTo reports whether next is a legal edge from the current status.
// out_for_delivery only exists for delivery orders; pickup orders go straight to completed.
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	switch o.Status {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next == OrderStatusCancelled
	case OrderStatusProcessing:
		switch next {
		case OrderStatusCancelled:
			return true
		case OrderStatusOutForDelivery:
			return o.DeliveryMethod == DeliveryMethodDelivery
		case OrderStatusCompleted:
			return o.DeliveryMethod == DeliveryMethodPickup
		}
	case OrderStatusOutForDelivery:
		return next == OrderStatusCompleted
	}
	return false
}
