package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// DefaultStaleAfter is the conservative default for stealing abandoned
// checkout locks; tune via configuration.
const DefaultStaleAfter = 15 * time.Minute

// CheckoutService serializes the checkout sequence per cart with a logical,
// timeout-bounded lock stored as row data, and runs the reserve-per-line
// workflow while the lock is held. Purchased carts are announced on a bounded
// queue drained by publish workers.
type CheckoutService struct {
	db         port.DatabaseRepository
	cache      port.CacheRepository
	stock      *StockService
	staleAfter time.Duration
	log        *slog.Logger
	purchased  chan domain.CartPurchased
}

func NewCheckoutService(db port.DatabaseRepository, cache port.CacheRepository, stock *StockService, staleAfter time.Duration, queueSize int, log *slog.Logger) *CheckoutService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &CheckoutService{
		db:         db,
		cache:      cache,
		stock:      stock,
		staleAfter: staleAfter,
		log:        log,
		purchased:  make(chan domain.CartPurchased, queueSize),
	}
}

// Begin acquires the checkout lock for a cart. A held lock older than the
// staleness threshold is stolen: a crashed attempt must not strand its cart,
// and there is no supervisor that forcibly unlocks.
func (s *CheckoutService) Begin(ctx context.Context, cartID string) error {
	return s.db.AcquireCheckoutLock(ctx, cartID, time.Now().UTC(), s.staleAfter)
}

// End releases the checkout lock. Idempotent.
func (s *CheckoutService) End(ctx context.Context, cartID string) error {
	return s.db.ReleaseCheckoutLock(ctx, cartID)
}

// MinutesSinceStarted reports how long the cart's checkout has been running,
// 0 when none is in progress.
func (s *CheckoutService) MinutesSinceStarted(ctx context.Context, cartID string) (int, error) {
	cart, err := s.db.GetCart(ctx, cartID)
	if err != nil {
		return 0, fmt.Errorf("read cart: %w", err)
	}
	if cart == nil {
		return 0, domain.ErrCartNotFound
	}
	return int(cart.CheckoutElapsed(time.Now().UTC()) / time.Minute), nil
}

// Checkout runs the full purchase sequence: idempotency gate, lock, one
// reservation per line, purchased flag. When any line fails, stock already
// reserved in this attempt is restored before the error is returned; no
// partial reservation outlives a failed checkout.
func (s *CheckoutService) Checkout(ctx context.Context, requestID, cartID string) error {
	idempotencyKey := fmt.Sprintf("checkout:%s:%s", requestID, cartID)

	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateRequest
	}

	if err := s.Begin(ctx, cartID); err != nil {
		return err
	}
	defer s.release(ctx, cartID)

	cart, err := s.db.GetCart(ctx, cartID)
	if err != nil {
		return fmt.Errorf("read cart: %w", err)
	}
	if cart == nil {
		return domain.ErrCartNotFound
	}
	if cart.Purchased {
		return domain.ErrCartPurchased
	}
	if len(cart.Lines) == 0 {
		return domain.ErrEmptyCart
	}

	reserved := make([]domain.CartLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		if err := s.stock.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			s.compensate(ctx, cartID, reserved)
			return err
		}
		reserved = append(reserved, line)
	}

	if err := s.db.MarkCartPurchased(ctx, cartID); err != nil {
		s.compensate(ctx, cartID, reserved)
		return fmt.Errorf("mark cart purchased: %w", err)
	}

	s.purchased <- domain.CartPurchased{
		EventID:    uuid.NewString(),
		CartID:     cartID,
		UserID:     cart.UserID,
		LineCount:  len(cart.Lines),
		OccurredAt: time.Now().UTC(),
	}

	return nil
}

// PurchasedEvents exposes the queue of completed checkouts for the publish
// worker pool.
func (s *CheckoutService) PurchasedEvents() <-chan domain.CartPurchased {
	return s.purchased
}

func (s *CheckoutService) Close() {
	close(s.purchased)
}

func (s *CheckoutService) compensate(ctx context.Context, cartID string, reserved []domain.CartLine) {
	for _, line := range reserved {
		if err := s.stock.Restore(ctx, line.ProductID, line.Quantity); err != nil {
			s.log.Error("stock restore failed",
				"cart_id", cartID,
				"product_id", line.ProductID,
				"quantity", line.Quantity,
				"error", err,
			)
		}
	}
}

func (s *CheckoutService) release(ctx context.Context, cartID string) {
	if err := s.db.ReleaseCheckoutLock(ctx, cartID); err != nil {
		s.log.Warn("checkout lock release failed", "cart_id", cartID, "error", err)
	}
}
