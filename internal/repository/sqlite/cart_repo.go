package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// cartRepository implements repository.CartRepository for SQLite.
type cartRepository struct {
	db *DB
}

// NewCartRepository creates a new SQLite cart repository.
func NewCartRepository(db *DB) repository.CartRepository {
	return &cartRepository{db: db}
}

// ownerClause returns the WHERE fragment and argument selecting the owner's rows.
func ownerClause(owner repository.CartOwner) (string, any) {
	if owner.UserID != nil {
		return "c.user_id = ?", *owner.UserID
	}
	return "c.session_key = ?", owner.SessionKey
}

// ListByOwner returns the owner's cart rows with their products.
func (r *cartRepository) ListByOwner(ctx context.Context, owner repository.CartOwner) (domain.Carts, error) {
	if owner.IsZero() {
		return domain.Carts{}, nil
	}

	where, arg := ownerClause(owner)
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.session_key, c.product_id, c.quantity, c.created_at,
		       p.id, p.name, p.slug, p.description, p.price, p.discount, p.quantity
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
		var userID sql.NullInt64
		var sessionKey sql.NullString
		var createdAt, price, discount string

		err := rows.Scan(
			&cart.ID, &userID, &sessionKey, &cart.ProductID, &cart.Quantity, &createdAt,
			&cart.Product.ID, &cart.Product.Name, &cart.Product.Slug, &cart.Product.Description,
			&price, &discount, &cart.Product.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart: %w", err)
		}

		cart.UserID = int64Ptr(userID)
		cart.SessionKey = sessionKey.String
		cart.CreatedAt = parseTime(createdAt)
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

	cart := &domain.Cart{
		UserID:     owner.UserID,
		SessionKey: owner.SessionKey,
		ProductID:  productID,
	}
	if owner.UserID != nil {
		cart.SessionKey = ""
	}

	where, arg := ownerClause(owner)
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var createdAt string
		err := tx.QueryRowContext(ctx,
			`SELECT c.id, c.quantity, c.created_at FROM carts c WHERE `+where+` AND c.product_id = ? ORDER BY c.id LIMIT 1`,
			arg, productID,
		).Scan(&cart.ID, &cart.Quantity, &createdAt)

		switch {
		case err == nil:
			cart.Quantity += quantity
			cart.CreatedAt = parseTime(createdAt)
			_, err = tx.ExecContext(ctx, `UPDATE carts SET quantity = ? WHERE id = ?`, cart.Quantity, cart.ID)
			return err

		case isNoRows(err):
			cart.Quantity = quantity
			cart.CreatedAt = time.Now().UTC()
			result, err := tx.ExecContext(ctx,
				`INSERT INTO carts (user_id, session_key, product_id, quantity, created_at) VALUES (?, ?, ?, ?, ?)`,
				nullInt64(cart.UserID), nullString(cart.SessionKey), productID, cart.Quantity, formatTime(cart.CreatedAt),
			)
			if err != nil {
				return err
			}
			cart.ID, err = result.LastInsertId()
			return err

		default:
			return err
		}
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add product to cart: %w", err)
	}

	return cart, nil
}

// Reassign moves the session's rows to the user inside one transaction.
func (r *cartRepository) Reassign(ctx context.Context, sessionKey string, userID int64, discardExisting bool) (*repository.ReassignResult, error) {
	result := &repository.ReassignResult{}
	if sessionKey == "" {
		return result, nil
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if discardExisting {
			res, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = ?`, userID)
			if err != nil {
				return fmt.Errorf("failed to discard user carts: %w", err)
			}
			result.Discarded, _ = res.RowsAffected()
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE carts SET user_id = ?, session_key = NULL WHERE session_key = ?`,
			userID, sessionKey,
		)
		if err != nil {
			return fmt.Errorf("failed to reassign session carts: %w", err)
		}
		result.Reassigned, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

var _ repository.CartRepository = (*cartRepository)(nil)
