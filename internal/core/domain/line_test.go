package domain

import "testing"

func TestLineStatus_Transitions(t *testing.T) {
	cases := []struct {
		from    LineStatus
		to      LineStatus
		allowed bool
	}{
		{LineStatusInCart, LineStatusPrepared, true},
		{LineStatusPrepared, LineStatusShipped, true},
		{LineStatusShipped, LineStatusReceived, true},
		{LineStatusInCart, LineStatusCancelled, true},
		{LineStatusPrepared, LineStatusCancelled, true},
		{LineStatusShipped, LineStatusCancelled, true},

		// no skipping ahead
		{LineStatusInCart, LineStatusShipped, false},
		{LineStatusInCart, LineStatusReceived, false},
		{LineStatusPrepared, LineStatusReceived, false},

		// no moving backwards
		{LineStatusShipped, LineStatusInCart, false},
		{LineStatusPrepared, LineStatusInCart, false},

		// terminal states stay terminal
		{LineStatusReceived, LineStatusCancelled, false},
		{LineStatusReceived, LineStatusShipped, false},
		{LineStatusCancelled, LineStatusInCart, false},
		{LineStatusCancelled, LineStatusPrepared, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestLineStatus_Terminal(t *testing.T) {
	for _, s := range []LineStatus{LineStatusInCart, LineStatusPrepared, LineStatusShipped} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []LineStatus{LineStatusReceived, LineStatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestActor_MayCancel(t *testing.T) {
	line := CartLine{CartID: "cart-1", ProductID: "item-1", ManagerID: "mgr-1"}

	if !(Actor{ID: "admin-1", Role: RoleAdmin}).MayCancel(line) {
		t.Error("admin should cancel any line")
	}
	if !(Actor{ID: "mgr-1", Role: RoleManager}).MayCancel(line) {
		t.Error("owning manager should cancel own line")
	}
	if (Actor{ID: "mgr-2", Role: RoleManager}).MayCancel(line) {
		t.Error("manager should not cancel another manager's line")
	}
	if (Actor{ID: "user-1", Role: RoleCustomer}).MayCancel(line) {
		t.Error("customer should not cancel lines")
	}
}
