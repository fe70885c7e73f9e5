package cart

import (
	"testing"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int64, price string) domain.MenuItem {
	return domain.MenuItem{ID: id, Name: "item", Price: domain.MustPrice(price), CategoryID: 1, Available: true}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

func TestAddItem_TwiceMergesLine(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "10.00"))
	c.AddItem(item(1, "10.00"))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 2, c.Count())
}

func TestAddItem_KeepsInsertionOrder(t *testing.T) {
	c := Empty()
	c.AddItem(item(2, "1.00"))
	c.AddItem(item(1, "1.00"))
	c.AddItem(item(2, "1.00"))

	require.Len(t, c.Items, 2)
	assert.Equal(t, int64(2), c.Items[0].MenuItem.ID)
	assert.Equal(t, int64(1), c.Items[1].MenuItem.ID)
}

func TestUpdateQuantity(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "5.00"))
	c.AddItem(item(2, "5.00"))
	c.UpdateQuantity(1, 4)
	assert.Equal(t, 5, c.Count())

	c.UpdateQuantity(1, 0)
	assert.Equal(t, 1, c.Count())
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(2), c.Items[0].MenuItem.ID)

	c.UpdateQuantity(2, -3)
	assert.True(t, c.IsEmpty())
}

func TestUpdateQuantity_UnknownIDIgnored(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "5.00"))
	c.UpdateQuantity(99, 3)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Count())
}

func TestRemoveItem_UnknownIDIsNoop(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "5.00"))
	c.RemoveItem(42)
	assert.Len(t, c.Items, 1)
}

func TestClear(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "5.00"))
	c.DeliveryMethod = domain.DeliveryMethodPickup
	c.PaymentMethod = domain.PaymentMethodPayPal
	c.DeliveryAddress = "1 Main St"

	c.Clear()

	assert.Equal(t, Empty(), c)
}

func TestSummarize_DeliveryBelowThreshold(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "10.00"))
	c.UpdateQuantity(1, 2)

	s := DefaultPricing().Summarize(c)

	assert.Equal(t, 2, s.Count)
	assertMoney(t, "20.00", s.Subtotal)
	assertMoney(t, "3.99", s.DeliveryFee)
	assertMoney(t, "1.65", s.Tax)
	assertMoney(t, "25.64", s.Total)
}

func TestSummarize_Pickup(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "10.00"))
	c.UpdateQuantity(1, 2)
	c.DeliveryMethod = domain.DeliveryMethodPickup

	s := DefaultPricing().Summarize(c)

	assertMoney(t, "0.00", s.DeliveryFee)
	assertMoney(t, "1.65", s.Tax)
	assertMoney(t, "21.65", s.Total)
}

func TestSummarize_FreeDeliveryAtThreshold(t *testing.T) {
	c := Empty()
	c.AddItem(item(1, "35.00"))

	s := DefaultPricing().Summarize(c)

	assertMoney(t, "0.00", s.DeliveryFee)
	assertMoney(t, "2.89", s.Tax)
	assertMoney(t, "37.89", s.Total)
}

func TestSummarize_TotalIsSumOfParts(t *testing.T) {
	prices := []string{"0.99", "24.99", "18.50", "32.99", "3.33", "7.77"}
	p := DefaultPricing()

	for n := 1; n <= len(prices); n++ {
		for _, method := range []domain.DeliveryMethod{domain.DeliveryMethodDelivery, domain.DeliveryMethodPickup} {
			c := Empty()
			c.DeliveryMethod = method
			for i := 0; i < n; i++ {
				c.AddItem(item(int64(i+1), prices[i]))
				c.UpdateQuantity(int64(i+1), i+1)
			}

			s := p.Summarize(c)
			assert.True(t, s.Total.Equal(s.Subtotal.Add(s.DeliveryFee).Add(s.Tax)))
			assert.True(t, s.Tax.Equal(s.Subtotal.Mul(p.TaxRate).Round(2)))
			if method == domain.DeliveryMethodPickup {
				assert.True(t, s.DeliveryFee.IsZero())
			}
		}
	}
}

func TestSummarize_CustomPricing(t *testing.T) {
	p := Pricing{
		FreeDeliveryThreshold: domain.MustPrice("50"),
		DeliveryFee:           domain.MustPrice("5"),
		TaxRate:               domain.MustPrice("0.10"),
	}
	c := Empty()
	c.AddItem(item(1, "40.00"))

	s := p.Summarize(c)

	assertMoney(t, "5.00", s.DeliveryFee)
	assertMoney(t, "4.00", s.Tax)
	assertMoney(t, "49.00", s.Total)
}

func TestParsePricing(t *testing.T) {
	p, err := ParsePricing("50", "5.00", "0.1")
	require.NoError(t, err)
	assert.True(t, p.DeliveryFee.Equal(domain.MustPrice("5.00")))

	_, err = ParsePricing("abc", "1", "0.1")
	assert.Error(t, err)

	_, err = ParsePricing("10", "-1", "0.1")
	assert.Error(t, err)
}
