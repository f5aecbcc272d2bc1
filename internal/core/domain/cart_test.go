package domain

import (
	"testing"
	"time"
)

func TestCart_CheckoutElapsed(t *testing.T) {
	now := time.Now().UTC()

	cart := Cart{ID: "cart-1"}
	if cart.CheckoutInProgress() {
		t.Error("expected no checkout in progress")
	}
	if cart.CheckoutElapsed(now) != 0 {
		t.Error("expected zero elapsed without a checkout")
	}

	started := now.Add(-20 * time.Minute)
	cart.CheckoutStartedAt = &started

	if !cart.CheckoutInProgress() {
		t.Error("expected checkout in progress")
	}
	if got := cart.CheckoutElapsed(now); got != 20*time.Minute {
		t.Errorf("expected 20m elapsed, got %v", got)
	}
}

func TestCart_CheckoutStale(t *testing.T) {
	now := time.Now().UTC()
	started := now.Add(-20 * time.Minute)
	cart := Cart{ID: "cart-1", CheckoutStartedAt: &started}

	if !cart.CheckoutStale(now, 15*time.Minute) {
		t.Error("20m old lock should be stale with a 15m threshold")
	}
	if cart.CheckoutStale(now, 30*time.Minute) {
		t.Error("20m old lock should not be stale with a 30m threshold")
	}
	if (&Cart{ID: "cart-2"}).CheckoutStale(now, 15*time.Minute) {
		t.Error("unlocked cart is never stale")
	}
}
