package domain

import "github.com/shopspring/decimal"

// OrderPlacedEvent is published once per successful placement, after the
// order is durably written. Consumed by the payment and inventory services.
type OrderPlacedEvent struct {
	OrderNumber string          `json:"orderNumber"`
	OrderID     string          `json:"orderId"`
	Email       string          `json:"email"`
	SkuCode     string          `json:"skuCode"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}
