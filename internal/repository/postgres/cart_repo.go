package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// cartRepository implements repository.CartRepository.
type cartRepository struct {
	db *DB
}

// NewCartRepository creates a new PostgreSQL cart repository.
func NewCartRepository(db *DB) repository.CartRepository {
	return &cartRepository{db: db}
}

func ownerClause(owner repository.CartOwner) (string, any) {
	if owner.UserID != nil {
		return "c.user_id = $1", *owner.UserID
	}
	return "c.session_key = $1", owner.SessionKey
}

// ListByOwner returns the owner's cart rows with their products.
func (r *cartRepository) ListByOwner(ctx context.Context, owner repository.CartOwner) (domain.Carts, error) {
	if owner.IsZero() {
		return domain.Carts{}, nil
	}

	where, arg := ownerClause(owner)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT c.id, c.user_id, c.session_key, c.product_id, c.quantity, c.created_at, `+productColumns+`
		FROM carts c
		JOIN products p ON p.id = c.product_id
		WHERE `+where+`
		ORDER BY c.id
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}
	defer rows.Close()

	carts := domain.Carts{}
	for rows.Next() {
		cart := &domain.Cart{Product: &domain.Product{}}
		var sessionKey *string
		var price, discount string

		err := rows.Scan(
			&cart.ID, &cart.UserID, &sessionKey, &cart.ProductID, &cart.Quantity, &cart.CreatedAt,
			&cart.Product.ID, &cart.Product.Name, &cart.Product.Slug, &cart.Product.Description,
			&price, &discount, &cart.Product.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart: %w", err)
		}

		if sessionKey != nil {
			cart.SessionKey = *sessionKey
		}
		if err := setProductPrices(cart.Product, price, discount); err != nil {
			return nil, err
		}
		carts = append(carts, cart)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating carts: %w", err)
	}

	return carts, nil
}

// AddProduct adds quantity of a product to the owner's cart.
func (r *cartRepository) AddProduct(ctx context.Context, owner repository.CartOwner, productID int64, quantity int) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("cart owner is required")
	}

	cart := &domain.Cart{UserID: owner.UserID, ProductID: productID}
	var sessionKey *string
	if owner.UserID == nil {
		cart.SessionKey = owner.SessionKey
		sessionKey = &owner.SessionKey
	}

	where, arg := ownerClause(owner)
	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return addProduct(ctx, tx, cart, sessionKey, where, arg, quantity)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add product to cart: %w", err)
	}

	return cart, nil
}

func addProduct(ctx context.Context, q Querier, cart *domain.Cart, sessionKey *string, where string, arg any, quantity int) error {
	err := q.QueryRow(ctx,
		`SELECT c.id, c.quantity, c.created_at FROM carts c WHERE `+where+` AND c.product_id = $2 ORDER BY c.id LIMIT 1 FOR UPDATE`,
		arg, cart.ProductID,
	).Scan(&cart.ID, &cart.Quantity, &cart.CreatedAt)

	switch {
	case err == nil:
		cart.Quantity += quantity
		_, err = q.Exec(ctx, `UPDATE carts SET quantity = $1 WHERE id = $2`, cart.Quantity, cart.ID)
		return err

	case isNoRows(err):
		cart.Quantity = quantity
		cart.CreatedAt = time.Now().UTC()
		return q.QueryRow(ctx,
			`INSERT INTO carts (user_id, session_key, product_id, quantity, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			cart.UserID, sessionKey, cart.ProductID, cart.Quantity, cart.CreatedAt,
		).Scan(&cart.ID)

	default:
		return err
	}
}

// Reassign moves the session's rows to the user inside one transaction.
func (r *cartRepository) Reassign(ctx context.Context, sessionKey string, userID int64, discardExisting bool) (*repository.ReassignResult, error) {
	result := &repository.ReassignResult{}
	if sessionKey == "" {
		return result, nil
	}

	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if discardExisting {
			tag, err := tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
			if err != nil {
				return fmt.Errorf("failed to discard user carts: %w", err)
			}
			result.Discarded = tag.RowsAffected()
		}

		tag, err := tx.Exec(ctx,
			`UPDATE carts SET user_id = $1, session_key = NULL WHERE session_key = $2`,
			userID, sessionKey,
		)
		if err != nil {
			return fmt.Errorf("failed to reassign session carts: %w", err)
		}
		result.Reassigned = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

var _ repository.CartRepository = (*cartRepository)(nil)
