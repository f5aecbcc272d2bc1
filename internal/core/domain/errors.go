package domain

import "errors"

// Contention and validation outcomes are typed failures, not faults. Only
// storage errors propagate as wrapped faults.
var (
	// ErrInsufficientStock is terminal: retrying with a fresher version
	// would still fail against ground truth.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVersionConflict is transient and absorbed by the reserve retry
	// loop; it never crosses the service boundary.
	ErrVersionConflict = errors.New("stock version conflict")

	// ErrAttemptsExceeded signals contention, not scarcity.
	ErrAttemptsExceeded = errors.New("reserve attempts exceeded")

	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrCartPurchased      = errors.New("cart already purchased")
	ErrEmptyCart          = errors.New("cart is empty")

	ErrLineNotFound           = errors.New("cart line not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrUnauthorizedTransition = errors.New("transition not authorized")

	ErrProductNotFound  = errors.New("product not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrDuplicateRequest = errors.New("duplicate request")
)
