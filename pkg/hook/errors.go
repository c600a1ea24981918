package hook

import "errors"

// Validation errors: the call is rejected before any state change.
var (
	ErrPoolNotInitialized   = errors.New("pool not initialized")
	ErrInvalidAmount        = errors.New("invalid amount or deadline")
	ErrInvalidTick          = errors.New("tick outside global bounds")
	ErrTickCapacityExceeded = errors.New("tick order capacity exceeded")
	ErrInvalidDirection     = errors.New("invalid order direction")
)

// Authorization and state-conflict errors.
var (
	ErrUnauthorized     = errors.New("caller is not the order owner")
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyFilled    = errors.New("order already filled")
	ErrAlreadyCancelled = errors.New("order already cancelled")
	ErrNothingToClaim   = errors.New("no claimable balance")
)

// Admin errors.
var ErrFeeTooHigh = errors.New("execution fee exceeds 1000 bps cap")
