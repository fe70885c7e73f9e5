// Package cart holds the shopping cart state container and its pricing rules.
package cart

import (
	"github.com/fjod/go_restaurant/internal/domain"
)

type Line struct {
	MenuItem domain.MenuItem `json:"menuItem"`
	Quantity int             `json:"quantity"`
}

type Cart struct {
	Items           []Line                `json:"items"`
	DeliveryMethod  domain.DeliveryMethod `json:"deliveryMethod"`
	PaymentMethod   domain.PaymentMethod  `json:"paymentMethod"`
	DeliveryAddress string                `json:"deliveryAddress"`
}

// Empty returns the cart every visitor starts with.
func Empty() Cart {
	return Cart{
		Items:          []Line{},
		DeliveryMethod: domain.DeliveryMethodDelivery,
		PaymentMethod:  domain.PaymentMethodCash,
	}
}

// AddItem increments the line for item or appends a new one with quantity 1.
func (c *Cart) AddItem(item domain.MenuItem) {
	if i := c.index(item.ID); i >= 0 {
		c.Items[i].Quantity++
		return
	}
	c.Items = append(c.Items, Line{MenuItem: item, Quantity: 1})
}

func (c *Cart) RemoveItem(menuItemID int64) {
	if i := c.index(menuItemID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of an existing line. qty <= 0 removes it,
// an unknown id is ignored.
func (c *Cart) UpdateQuantity(menuItemID int64, qty int) {
	i := c.index(menuItemID)
	if i < 0 {
		return
	}
	if qty <= 0 {
		c.RemoveItem(menuItemID)
		return
	}
	c.Items[i].Quantity = qty
}

func (c *Cart) Clear() {
	*c = Empty()
}

func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone copies the line slice so the result can outlive later mutations.
func (c *Cart) Clone() Cart {
	out := *c
	out.Items = make([]Line, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

func (c *Cart) index(menuItemID int64) int {
	for i, l := range c.Items {
		if l.MenuItem.ID == menuItemID {
			return i
		}
	}
	return -1
}
