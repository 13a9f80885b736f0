package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// orderRepository implements repository.OrderRepository.
type orderRepository struct {
	db *DB
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// ListByUser returns the user's orders newest first with items and products.
func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, created_at, phone_number, requires_delivery, delivery_address,
		       payment_on_get, is_paid, status
		FROM orders
		WHERE user_id = $1
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	ids := []int64{}
	byID := make(map[int64]*domain.Order)
	for rows.Next() {
		order := &domain.Order{Items: []*domain.OrderItem{}}
		err := rows.Scan(
			&order.ID, &order.UserID, &order.CreatedAt, &order.PhoneNumber, &order.RequiresDelivery,
			&order.DeliveryAddress, &order.PaymentOnGet, &order.IsPaid, &order.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	if err := r.loadItems(ctx, r.db.Pool, ids, byID); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, q Querier, ids []int64, byID map[int64]*domain.Order) error {
	rows, err := q.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.name, i.price::text, i.quantity, i.created_at,
		       p.id, p.name, p.slug, p.description, p.price::text, p.discount::text, p.quantity
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &domain.OrderItem{}
		var price string
		var pID *int64
		var pQuantity *int
		var pName, pSlug, pDescription, pPrice, pDiscount *string

		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Name, &price, &item.Quantity, &item.CreatedAt,
			&pID, &pName, &pSlug, &pDescription, &pPrice, &pDiscount, &pQuantity,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}

		if item.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("invalid price for order item %d: %w", item.ID, err)
		}

		if pID != nil {
			item.Product = &domain.Product{
				ID:          *pID,
				Name:        *pName,
				Slug:        *pSlug,
				Description: *pDescription,
				Quantity:    *pQuantity,
			}
			if err := setProductPrices(item.Product, *pPrice, *pDiscount); err != nil {
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
