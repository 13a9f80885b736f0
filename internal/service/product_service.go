package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ProductService seeds catalogue entries for carts and orders to reference.
// The storefront catalogue itself is managed elsewhere.
type ProductService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// CreateProductInput contains the data needed to create a product.
type CreateProductInput struct {
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Quantity    int
}

// Create validates and stores a product.
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Slug == "" {
		input.Slug = Slugify(input.Name)
	}

	switch {
	case input.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !slugRegex.MatchString(input.Slug):
		return nil, fmt.Errorf("%w: slug %q", ErrInvalidProduct, input.Slug)
	case input.Price.IsNegative():
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case input.Discount.IsNegative() || input.Discount.GreaterThan(decimal.NewFromInt(100)):
		return nil, fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidProduct)
	case input.Quantity < 0:
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}

	product := &domain.Product{
		Name:        input.Name,
		Slug:        input.Slug,
		Description: input.Description,
		Price:       input.Price,
		Discount:    input.Discount,
		Quantity:    input.Quantity,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, domain.ErrProductAlreadyExists) {
			return nil, fmt.Errorf("%w: slug '%s'", ErrProductAlreadyExists, input.Slug)
		}
		s.logger.Error().Err(err).Str("slug", input.Slug).Msg("failed to create product")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("product_id", product.ID).
		Str("slug", product.Slug).
		Msg("product created")

	return product, nil
}

// Slugify lower-cases name and joins its ASCII letter and digit runs with
// hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}
