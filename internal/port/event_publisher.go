package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// EventPublisher delivers domain events to downstream consumers (reporting,
// notifications). Delivery is best-effort; callers log failures.
type EventPublisher interface {
	PublishCartPurchased(ctx context.Context, e domain.CartPurchased) error
	PublishLineStatusChanged(ctx context.Context, e domain.LineStatusChanged) error
}
