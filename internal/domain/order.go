package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the persisted order record. ID and OrderNumber are assigned by
// the placement service right before the first write; Price always comes
// from the product catalog, never from caller input.
type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	SkuCode     string          `json:"skuCode"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Email       string          `json:"email"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Total is the order amount: unit price times quantity.
func (o *Order) Total() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}
