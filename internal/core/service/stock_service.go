package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	defaultMaxAttempts = 3
	defaultRetryJitter = 5 * time.Millisecond
)

// StockService reserves inventory through version-checked conditional writes.
// The store's compare-and-swap is the sole synchronization point; conflicts
// are absorbed by a bounded retry loop.
type StockService struct {
	db          port.DatabaseRepository
	maxAttempts int
	retryJitter time.Duration
}

func NewStockService(db port.DatabaseRepository, maxAttempts int, retryJitter time.Duration) *StockService {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if retryJitter <= 0 {
		retryJitter = defaultRetryJitter
	}
	return &StockService{
		db:          db,
		maxAttempts: maxAttempts,
		retryJitter: retryJitter,
	}
}

// Reserve decrements stock for a product, retrying version conflicts up to
// the attempt budget. Insufficient stock fails immediately: a fresher version
// would still fail against ground truth. After the budget is exhausted it
// returns domain.ErrAttemptsExceeded with no stock mutated.
func (s *StockService) Reserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			// jittered delay to spread out herding retries
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(rand.Int63n(int64(s.retryJitter)))):
			}
		}

		product, err := s.db.GetProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("read product: %w", err)
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		err = s.db.SubtractStock(ctx, productID, quantity, product.Version)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		return err
	}

	return domain.ErrAttemptsExceeded
}

// Restore adds previously reserved stock back. Used by the checkout workflow
// to compensate earlier lines when a later line fails.
func (s *StockService) Restore(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	return s.db.RestoreStock(ctx, productID, quantity)
}
