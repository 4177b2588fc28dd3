package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CreditStatus represents the status of a store credit
type CreditStatus string

const (
	CreditAvailable CreditStatus = "available"
	CreditApplied   CreditStatus = "applied"
)

// Credit is store credit owed to a user, created by a refund and consumable
// as payment toward a future pending order in the same conference. The credit
// flips to applied once its remaining balance reaches zero.
type Credit struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"user_id" db:"user_id"`
	ConferenceID    int64           `json:"conference_id" db:"conference_id"`
	Status          CreditStatus    `json:"status" db:"status"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount" db:"remaining_amount"`
	SourceOrderID   *int64          `json:"source_order_id" db:"source_order_id"`
	AppliedOrderID  *int64          `json:"applied_order_id" db:"applied_order_id"`
	Reason          string          `json:"reason" db:"reason"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the credit data.
func (c *Credit) Validate() error {
	switch c.Status {
	case CreditAvailable, CreditApplied:
	default:
		return errors.New("invalid credit status")
	}

	if c.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("credit amount must be positive")
	}

	if c.RemainingAmount.IsNegative() {
		return errors.New("credit remaining amount cannot be negative")
	}

	if c.RemainingAmount.GreaterThan(c.Amount) {
		return errors.New("credit remaining amount cannot exceed its amount")
	}

	return nil
}

// IsAvailable returns true when the credit still has spendable balance.
func (c *Credit) IsAvailable() bool {
	return c.Status == CreditAvailable && c.RemainingAmount.GreaterThan(decimal.Zero)
}
