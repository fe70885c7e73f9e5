package cart

import (
	"fmt"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/shopspring/decimal"
)

type Pricing struct {
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeDeliveryThreshold: domain.MustPrice("35.00"),
		DeliveryFee:           domain.MustPrice("3.99"),
		TaxRate:               domain.MustPrice("0.0825"),
	}
}

// ParsePricing builds a Pricing from decimal strings, as they come from config.
func ParsePricing(threshold, fee, rate string) (Pricing, error) {
	var p Pricing
	var err error
	if p.FreeDeliveryThreshold, err = decimal.NewFromString(threshold); err != nil {
		return Pricing{}, fmt.Errorf("free delivery threshold %q: %w", threshold, err)
	}
	if p.DeliveryFee, err = decimal.NewFromString(fee); err != nil {
		return Pricing{}, fmt.Errorf("delivery fee %q: %w", fee, err)
	}
	if p.TaxRate, err = decimal.NewFromString(rate); err != nil {
		return Pricing{}, fmt.Errorf("tax rate %q: %w", rate, err)
	}
	if p.FreeDeliveryThreshold.IsNegative() || p.DeliveryFee.IsNegative() || p.TaxRate.IsNegative() {
		return Pricing{}, fmt.Errorf("pricing values must not be negative")
	}
	return p, nil
}

// Summary holds the derived values of a cart.
type Summary struct {
	Count       int             `json:"cartCount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

func (p Pricing) Subtotal(c Cart) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Items {
		sum = sum.Add(l.MenuItem.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

func (p Pricing) Fee(method domain.DeliveryMethod, subtotal decimal.Decimal) decimal.Decimal {
	if method != domain.DeliveryMethodDelivery || subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return p.DeliveryFee
}

func (p Pricing) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return domain.Money(subtotal.Mul(p.TaxRate))
}

// Summarize computes count, subtotal, fee, tax and total.
// total = subtotal + fee + tax always holds on the returned value.
func (p Pricing) Summarize(c Cart) Summary {
	subtotal := p.Subtotal(c)
	fee := p.Fee(c.DeliveryMethod, subtotal)
	tax := p.Tax(subtotal)
	return Summary{
		Count:       c.Count(),
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       subtotal.Add(fee).Add(tax),
	}
}
