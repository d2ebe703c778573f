package domain

import "github.com/shopspring/decimal"

// Responses from the downstream validation services. These are scoped to a
// single placement attempt and never persisted.

type Product struct {
	ID          string          `json:"id"`
	SkuCode     string          `json:"skuCode"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
}

type Customer struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type StockStatus struct {
	InStock           bool `json:"inStock"`
	AvailableQuantity int  `json:"availableQuantity"`
}
