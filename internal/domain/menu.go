package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"imageUrl"`
	CategoryID  int64           `json:"categoryId"`
	Available   bool            `json:"available"`
}

type Settings struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	LogoURL       *string         `json:"logoUrl"`
	PrimaryColor  *string         `json:"primaryColor"`
	ThemeSettings json.RawMessage `json:"themeSettings"`
}

type Location struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	OpeningHours string `json:"openingHours"`
}
