package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineStatus string

const (
	LineStatusInCart    LineStatus = "in_cart"
	LineStatusPrepared  LineStatus = "prepared"
	LineStatusShipped   LineStatus = "shipped"
	LineStatusReceived  LineStatus = "received"
	LineStatusCancelled LineStatus = "cancelled"
)

// lineTransitions is the full lifecycle graph. Received and Cancelled are
// terminal and therefore absent as keys.
var lineTransitions = map[LineStatus][]LineStatus{
	LineStatusInCart:   {LineStatusPrepared, LineStatusCancelled},
	LineStatusPrepared: {LineStatusShipped, LineStatusCancelled},
	LineStatusShipped:  {LineStatusReceived, LineStatusCancelled},
}

func (s LineStatus) CanTransitionTo(target LineStatus) bool {
	for _, next := range lineTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s LineStatus) Terminal() bool {
	return s == LineStatusReceived || s == LineStatusCancelled
}

func (s LineStatus) Valid() bool {
	switch s {
	case LineStatusInCart, LineStatusPrepared, LineStatusShipped, LineStatusReceived, LineStatusCancelled:
		return true
	}
	return false
}

// CartLine is a line item within a cart. UnitPrice is snapshotted when the
// line is added and never changes afterwards; ManagerID identifies the seller
// responsible for the product.
type CartLine struct {
	CartID    string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Status    LineStatus
	ManagerID string
	CreatedAt time.Time
	UpdatedAt time.Time
}
