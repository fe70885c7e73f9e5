package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money rounds to cents.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustPrice parses a literal price. Only for constants and seeds.
func MustPrice(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
