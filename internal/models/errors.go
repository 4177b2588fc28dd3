package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	ErrConferenceNotFound = errors.New("conference not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrCreditNotFound     = errors.New("credit not found")
	ErrDuplicateEntry     = errors.New("duplicate entry")

	// Cart mutation errors; user-correctable.
	ErrItemUnavailable       = errors.New("item is not available for sale")
	ErrLimitExceeded         = errors.New("per-user purchase limit exceeded")
	ErrInsufficientInventory = errors.New("insufficient inventory remaining")

	// Voucher errors.
	ErrVoucherInvalid          = errors.New("voucher is invalid, inactive or expired")
	ErrVoucherExhausted        = errors.New("voucher has no uses remaining")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique voucher code")
	ErrInvalidCount            = errors.New("voucher count must be between 1 and 500")

	// Checkout errors.
	ErrCartExpired      = errors.New("cart has expired")
	ErrCapacityExceeded = errors.New("conference capacity exceeded")

	// Payment/refund errors. ErrInvalidOrderState indicates a programming or
	// race error rather than user input and is logged at higher severity.
	ErrInvalidOrderState    = errors.New("order is not in the required state")
	ErrNonZeroTotal         = errors.New("order total is not zero")
	ErrRefundExceedsBalance = errors.New("refund amount exceeds refundable balance")
	ErrCreditUnavailable    = errors.New("credit has no spendable balance")
	ErrNoGatewayPayment     = errors.New("order has no successful gateway payment")
	ErrCrossTenantMismatch  = errors.New("credit and order belong to different users or conferences")

	// Monetary conversion errors.
	ErrInvalidAmount = errors.New("amount is not representable in the given currency")
)

// CapacityExceededError reports how many tickets remained when a checkout was
// rejected. Remaining of zero means the conference is sold out.
type CapacityExceededError struct {
	Remaining int
}

func (e *CapacityExceededError) Error() string {
	if e.Remaining <= 0 {
		return "conference is sold out"
	}
	return fmt.Sprintf("only %d tickets remaining", e.Remaining)
}

// Unwrap allows errors.Is(err, ErrCapacityExceeded) to match.
func (e *CapacityExceededError) Unwrap() error {
	return ErrCapacityExceeded
}

// GatewayError represents a failure reported by the payment gateway. It aborts
// the enclosing transaction; the web layer owns user-facing messaging.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error: %s", e.Message)
}
