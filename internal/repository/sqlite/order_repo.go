package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// orderRepository implements repository.OrderRepository for SQLite.
type orderRepository struct {
	db *DB
}

// NewOrderRepository creates a new SQLite order repository.
func NewOrderRepository(db *DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// ListByUser returns the user's orders newest first with items and products.
// Items are fetched with a second query over all order IDs.
func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, created_at, phone_number, requires_delivery, delivery_address,
		       payment_on_get, is_paid, status
		FROM orders
		WHERE user_id = ?
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	byID := make(map[int64]*domain.Order)
	for rows.Next() {
		order := &domain.Order{Items: []*domain.OrderItem{}}
		var createdAt string
		var requiresDelivery, paymentOnGet, isPaid int

		err := rows.Scan(
			&order.ID, &order.UserID, &createdAt, &order.PhoneNumber, &requiresDelivery,
			&order.DeliveryAddress, &paymentOnGet, &isPaid, &order.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		order.CreatedAt = parseTime(createdAt)
		order.RequiresDelivery = requiresDelivery != 0
		order.PaymentOnGet = paymentOnGet != 0
		order.IsPaid = isPaid != 0
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}

	if err := r.loadItems(ctx, orders, byID); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orders []*domain.Order, byID map[int64]*domain.Order) error {
	placeholders := make([]string, len(orders))
	args := make([]any, len(orders))
	for i, o := range orders {
		placeholders[i] = "?"
		args[i] = o.ID
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.name, i.price, i.quantity, i.created_at,
		       p.id, p.name, p.slug, p.description, p.price, p.discount, p.quantity
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY i.id
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &domain.OrderItem{}
		var productID, pID, pQuantity sql.NullInt64
		var price, createdAt string
		var pName, pSlug, pDescription, pPrice, pDiscount sql.NullString

		err := rows.Scan(
			&item.ID, &item.OrderID, &productID, &item.Name, &price, &item.Quantity, &createdAt,
			&pID, &pName, &pSlug, &pDescription, &pPrice, &pDiscount, &pQuantity,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}

		item.ProductID = int64Ptr(productID)
		item.CreatedAt = parseTime(createdAt)
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("invalid price for order item %d: %w", item.ID, err)
		}

		if pID.Valid {
			item.Product = &domain.Product{
				ID:          pID.Int64,
				Name:        pName.String,
				Slug:        pSlug.String,
				Description: pDescription.String,
				Quantity:    int(pQuantity.Int64),
			}
			if err := setProductPrices(item.Product, pPrice.String, pDiscount.String); err != nil {
				return err
			}
		}

		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

var _ repository.OrderRepository = (*orderRepository)(nil)
