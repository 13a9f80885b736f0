package domain

import "github.com/shopspring/decimal"

// Product is a catalogue entry. The catalogue is managed elsewhere; this
// service only reads products to render carts and orders.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`

	// Discount is a percentage in the range [0, 100].
	Discount decimal.Decimal `json:"discount"`

	// Quantity is the stock level.
	Quantity int `json:"quantity"`
}

var hundred = decimal.NewFromInt(100)

// SellPrice returns the price after discount, rounded to cents.
func (p *Product) SellPrice() decimal.Decimal {
	if p.Discount.IsZero() {
		return p.Price
	}
	off := p.Price.Mul(p.Discount).Div(hundred)
	return p.Price.Sub(off).Round(2)
}
