package sqlite

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// productRepository implements repository.ProductRepository for SQLite.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new SQLite product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO products (name, slug, description, price, discount, quantity)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		product.Name,
		product.Slug,
		product.Description,
		product.Price.StringFixed(2),
		product.Discount.StringFixed(2),
		product.Quantity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrProductAlreadyExists, "slug already in use", product.Slug)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	product.ID = id
	return nil
}

// GetByID retrieves a product by ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	product := &domain.Product{}
	var price, discount string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, price, discount, quantity FROM products WHERE id = ?`,
		id,
	).Scan(&product.ID, &product.Name, &product.Slug, &product.Description, &price, &discount, &product.Quantity)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := setProductPrices(product, price, discount); err != nil {
		return nil, err
	}
	return product, nil
}

func setProductPrices(p *domain.Product, price, discount string) error {
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return fmt.Errorf("invalid price for product %d: %w", p.ID, err)
	}
	if p.Discount, err = decimal.NewFromString(discount); err != nil {
		return fmt.Errorf("invalid discount for product %d: %w", p.ID, err)
	}
	return nil
}

var _ repository.ProductRepository = (*productRepository)(nil)
