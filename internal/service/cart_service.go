package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/events"
	"github.com/prn-tf/home-store/internal/lock"
	"github.com/prn-tf/home-store/internal/metrics"
	"github.com/prn-tf/home-store/internal/repository"
)

// CarryoverMode selects what happens to a user's existing cart rows when an
// anonymous cart is carried over.
type CarryoverMode string

const (
	// CarryoverDiscardExisting deletes the user's rows first (login).
	CarryoverDiscardExisting CarryoverMode = "discard"

	// CarryoverKeepExisting leaves the user's rows in place (registration).
	CarryoverKeepExisting CarryoverMode = "keep"
)

// CartService handles shopping cart operations.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	locker      lock.Locker
	lockOpts    lock.Options
	metrics     *metrics.Metrics
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewCartService creates a new CartService.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	locker lock.Locker,
	m *metrics.Metrics,
	publisher events.Publisher,
	logger zerolog.Logger,
) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		locker:      locker,
		lockOpts:    lock.DefaultOptions,
		metrics:     m,
		publisher:   publisher,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// CarryoverInput identifies the anonymous cart and its new owner.
type CarryoverInput struct {
	SessionKey string
	UserID     int64
	Mode       CarryoverMode
}

// CarryoverOutput reports what a carryover changed.
type CarryoverOutput struct {
	Discarded  int64
	Reassigned int64
}

// Carryover moves the cart rows keyed by an anonymous session to a user.
// In discard mode the user's previous rows are deleted first. Both steps
// run in one transaction while holding the user's carryover lock. An empty
// session key is a no-op.
func (s *CartService) Carryover(ctx context.Context, input CarryoverInput) (*CarryoverOutput, error) {
	if input.SessionKey == "" {
		return &CarryoverOutput{}, nil
	}

	discard := input.Mode == CarryoverDiscardExisting

	var result *repository.ReassignResult
	err := lock.WithLock(ctx, s.locker, lock.Keys.CartCarryover(input.UserID), s.lockOpts, func(ctx context.Context) error {
		var err error
		result, err = s.cartRepo.Reassign(ctx, input.SessionKey, input.UserID, discard)
		return err
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.logger.Warn().Int64("user_id", input.UserID).Msg("cart carryover lock busy")
			return nil, ErrCartBusy
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to carry over cart")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.Carryover(string(input.Mode), result.Reassigned)

	s.logger.Info().
		Int64("user_id", input.UserID).
		Str("mode", string(input.Mode)).
		Int64("discarded", result.Discarded).
		Int64("reassigned", result.Reassigned).
		Msg("cart carried over")

	if s.publisher != nil {
		event := events.NewEvent(events.TypeCartCarriedOver, map[string]any{
			"user_id":    input.UserID,
			"mode":       string(input.Mode),
			"discarded":  result.Discarded,
			"reassigned": result.Reassigned,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish event")
		}
	}

	return &CarryoverOutput{
		Discarded:  result.Discarded,
		Reassigned: result.Reassigned,
	}, nil
}

// List returns the owner's cart rows with products. A zero owner has an
// empty cart.
func (s *CartService) List(ctx context.Context, owner repository.CartOwner) (domain.Carts, error) {
	if owner.IsZero() {
		return domain.Carts{}, nil
	}

	carts, err := s.cartRepo.ListByOwner(ctx, owner)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list cart")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return carts, nil
}

// CheckAddition reports whether quantity of a product could be added to a
// cart, without touching any cart.
func (s *CartService) CheckAddition(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return ErrProductNotFound
		}
		s.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to get product")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}

// AddProduct puts quantity of a product into the owner's cart.
func (s *CartService) AddProduct(ctx context.Context, owner repository.CartOwner, productID int64, quantity int) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, ErrMissingCartOwner
	}
	if err := s.CheckAddition(ctx, productID, quantity); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.AddProduct(ctx, owner, productID, quantity)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		s.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to add product to cart")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().
		Int64("product_id", productID).
		Int("quantity", cart.Quantity).
		Bool("authenticated", owner.UserID != nil).
		Msg("product added to cart")

	return cart, nil
}
