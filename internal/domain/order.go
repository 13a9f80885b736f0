package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a historical purchase. Orders are created by the checkout flow
// and are read-only for account pages.
type Order struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	PhoneNumber      string    `json:"phone_number"`
	RequiresDelivery bool      `json:"requires_delivery"`
	DeliveryAddress  string    `json:"delivery_address"`
	PaymentOnGet     bool      `json:"payment_on_get"`
	IsPaid           bool      `json:"is_paid"`
	Status           string    `json:"status"`

	Items []*OrderItem `json:"items"`
}

// TotalPrice sums the line totals of all items.
func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.ProductsPrice())
	}
	return total
}

// OrderItem is one line of an order. Name and Price are copied from the
// product at checkout time so history survives catalogue changes.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID *int64          `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`

	// Product is nil when the product was removed from the catalogue.
	Product *Product `json:"product,omitempty"`
}

// ProductsPrice returns price times quantity.
func (i *OrderItem) ProductsPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}
