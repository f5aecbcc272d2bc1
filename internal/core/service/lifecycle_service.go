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

// LifecycleService applies fulfilment status transitions to cart lines.
// Checks run in a fixed order: line exists, graph permits, actor authorized.
type LifecycleService struct {
	db     port.DatabaseRepository
	events port.EventPublisher
	log    *slog.Logger
}

func NewLifecycleService(db port.DatabaseRepository, events port.EventPublisher, log *slog.Logger) *LifecycleService {
	return &LifecycleService{
		db:     db,
		events: events,
		log:    log,
	}
}

// ChangeLineStatus moves a single line along the lifecycle graph. Cancellation
// requires the admin capability or ownership of the line; other transitions
// are granted uniformly to fulfilment actors. Stock is untouched: it was
// committed at checkout time.
func (s *LifecycleService) ChangeLineStatus(ctx context.Context, cartID, productID string, target domain.LineStatus, actor domain.Actor) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, target)
	}

	line, err := s.db.GetLine(ctx, cartID, productID)
	if err != nil {
		return fmt.Errorf("read line: %w", err)
	}
	if line == nil {
		return domain.ErrLineNotFound
	}

	if !line.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, line.Status, target)
	}

	if target == domain.LineStatusCancelled && !actor.MayCancel(*line) {
		return domain.ErrUnauthorizedTransition
	}

	if err := s.db.UpdateLineStatus(ctx, cartID, productID, target); err != nil {
		return fmt.Errorf("update line status: %w", err)
	}

	if s.events != nil {
		event := domain.LineStatusChanged{
			EventID:    uuid.NewString(),
			CartID:     cartID,
			ProductID:  productID,
			From:       line.Status,
			To:         target,
			ActorID:    actor.ID,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.events.PublishLineStatusChanged(ctx, event); err != nil {
			s.log.Warn("line status event publish failed",
				"cart_id", cartID,
				"product_id", productID,
				"error", err,
			)
		}
	}

	return nil
}
