package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/metrics"
	"github.com/prn-tf/home-store/internal/repository"
)

// DefaultOrdersTTL is how long a user's order history stays cached.
const DefaultOrdersTTL = 2 * time.Minute

// Cache lookup outcomes.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// OrderService reads order history through a read-through cache.
// There is no stampede protection: concurrent misses all hit the database.
type OrderService struct {
	orderRepo repository.OrderRepository
	cache     repository.Cache
	ttl       time.Duration
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewOrderService creates a new OrderService. A nil cache disables caching.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cache repository.Cache,
	ttl time.Duration,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *OrderService {
	if ttl <= 0 {
		ttl = DefaultOrdersTTL
	}
	return &OrderService{
		orderRepo: orderRepo,
		cache:     cache,
		ttl:       ttl,
		metrics:   m,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// ListForUser returns the user's orders newest first with items and
// products. A cached copy younger than the TTL is returned when present.
// Cache failures are logged and never fail the call.
func (s *OrderService) ListForUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	key := repository.CacheKey{}.UserOrders(userID)

	if s.cache != nil {
		if orders, ok := s.readCache(ctx, key, userID); ok {
			return orders, nil
		}
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list orders")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	if s.cache != nil {
		s.writeCache(ctx, key, userID, orders)
	}

	return orders, nil
}

func (s *OrderService) readCache(ctx context.Context, key string, userID int64) ([]*domain.Order, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			s.metrics.OrderCache(cacheMiss)
			return nil, false
		}
		s.metrics.OrderCache(cacheError)
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("order cache read failed")
		return nil, false
	}

	var orders []*domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		s.metrics.OrderCache(cacheError)
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("discarding undecodable cached orders")
		return nil, false
	}

	s.metrics.OrderCache(cacheHit)
	return orders, true
}

func (s *OrderService) writeCache(ctx context.Context, key string, userID int64, orders []*domain.Order) {
	data, err := json.Marshal(orders)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to encode orders for cache")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("order cache write failed")
	}
}

// =============================================================================
// Pagination
// =============================================================================

// OrderPage is one page of an order list.
type OrderPage struct {
	Orders     []*domain.Order
	Number     int
	TotalPages int
	Total      int
}

// HasPrevious reports whether a page precedes this one.
func (p *OrderPage) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *OrderPage) HasNext() bool { return p.Number < p.TotalPages }

// PreviousNumber returns the previous page number.
func (p *OrderPage) PreviousNumber() int { return p.Number - 1 }

// NextNumber returns the next page number.
func (p *OrderPage) NextNumber() int { return p.Number + 1 }

// Paginate slices orders into pages of perPage. Page numbers below 1 select
// the first page and numbers past the end select the last page. An empty
// list has a single empty page.
func Paginate(orders []*domain.Order, page, perPage int) *OrderPage {
	if perPage <= 0 {
		perPage = 10
	}

	total := len(orders)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}

	return &OrderPage{
		Orders:     orders[start:end],
		Number:     page,
		TotalPages: totalPages,
		Total:      total,
	}
}
