package port

import (
	"context"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

// DatabaseRepository is the persistence collaborator. All synchronization is
// pushed into single conditional writes against the store; implementations
// hold no in-process locks. Reads return (nil, nil) for missing rows.
type DatabaseRepository interface {
	// GetProduct retrieves a product with its current stock and version.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	// SubtractStock performs one atomic version-checked decrement. It
	// returns domain.ErrVersionConflict when another writer moved the
	// version first and domain.ErrInsufficientStock when the version
	// matched but stock was short.
	SubtractStock(ctx context.Context, productID string, amount, expectedVersion int) error

	// RestoreStock atomically adds stock back, bumping the version.
	// Used to compensate reservations of a failed checkout attempt.
	RestoreStock(ctx context.Context, productID string, amount int) error

	// GetCart retrieves a cart together with its lines.
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)

	// AcquireCheckoutLock sets the checkout-started timestamp in one
	// conditional write. It succeeds when the cart is unlocked or the
	// existing lock is older than staleAfter, otherwise it returns
	// domain.ErrCheckoutInProgress.
	AcquireCheckoutLock(ctx context.Context, cartID string, now time.Time, staleAfter time.Duration) error

	// ReleaseCheckoutLock unconditionally clears the lock. Idempotent.
	ReleaseCheckoutLock(ctx context.Context, cartID string) error

	// MarkCartPurchased flips the purchased flag.
	MarkCartPurchased(ctx context.Context, cartID string) error

	// GetLine retrieves a single cart line.
	GetLine(ctx context.Context, cartID, productID string) (*domain.CartLine, error)

	// UpdateLineStatus writes exactly one line's status field.
	UpdateLineStatus(ctx context.Context, cartID, productID string, status domain.LineStatus) error
}
