package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is one product line in a shopping cart.
// A row is keyed either by SessionKey (anonymous visitor) or by UserID
// (authenticated customer), never both after carryover.
type Cart struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	SessionKey string    `json:"session_key,omitempty"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`

	// Product is populated by list queries.
	Product *Product `json:"product,omitempty"`
}

// ProductsPrice returns sell price times quantity.
func (c *Cart) ProductsPrice() decimal.Decimal {
	if c.Product == nil {
		return decimal.Zero
	}
	return c.Product.SellPrice().Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// Carts is a list of cart rows belonging to one owner.
type Carts []*Cart

// TotalQuantity sums the quantities of all rows.
func (cs Carts) TotalQuantity() int {
	total := 0
	for _, c := range cs {
		total += c.Quantity
	}
	return total
}

// TotalPrice sums ProductsPrice over all rows.
func (cs Carts) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.ProductsPrice())
	}
	return total
}
