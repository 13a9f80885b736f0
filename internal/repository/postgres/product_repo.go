package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

// productColumns casts NUMERIC columns to text so they parse losslessly into decimals.
const productColumns = `p.id, p.name, p.slug, p.description, p.price::text, p.discount::text, p.quantity`

// productRepository implements repository.ProductRepository.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new PostgreSQL product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO products (name, slug, description, price, discount, quantity)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6)
		RETURNING id
	`,
		product.Name,
		product.Slug,
		product.Description,
		product.Price.StringFixed(2),
		product.Discount.StringFixed(2),
		product.Quantity,
	).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrProductAlreadyExists, "slug already in use", product.Slug)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	product := &domain.Product{}
	var price, discount string

	err := r.db.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id).Scan(
		&product.ID, &product.Name, &product.Slug, &product.Description, &price, &discount, &product.Quantity,
	)
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
