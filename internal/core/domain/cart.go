package domain

import "time"

// Cart is the unit of checkout. The checkout lock is plain row data
// (CheckoutStartedAt) so it survives process restarts: nil means unlocked.
type Cart struct {
	ID                string
	UserID            string
	Purchased         bool
	CheckoutStartedAt *time.Time
	Lines             []CartLine
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (c *Cart) CheckoutInProgress() bool {
	return c.CheckoutStartedAt != nil
}

// CheckoutElapsed returns zero when no checkout is in progress.
func (c *Cart) CheckoutElapsed(now time.Time) time.Duration {
	if c.CheckoutStartedAt == nil {
		return 0
	}
	return now.Sub(*c.CheckoutStartedAt)
}

// CheckoutStale reports whether a held lock is old enough to be stolen.
func (c *Cart) CheckoutStale(now time.Time, staleAfter time.Duration) bool {
	return c.CheckoutStartedAt != nil && now.Sub(*c.CheckoutStartedAt) > staleAfter
}
