package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RefundMethod represents how a refund was delivered
type RefundMethod string

const (
	RefundGateway RefundMethod = "gateway"
	RefundCredit  RefundMethod = "credit"
)

// Refund is the audit record of money returned against an order. Gateway
// refunds send the amount back through the payment gateway and issue a
// matching store credit; the sum of an order's refunds never exceeds its
// succeeded gateway payment total.
type Refund struct {
	ID              int64           `json:"id" db:"id"`
	OrderID         int64           `json:"order_id" db:"order_id"`
	Method          RefundMethod    `json:"method" db:"method"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	GatewayRefundID string          `json:"gateway_refund_id" db:"gateway_refund_id"`
	Reason          string          `json:"reason" db:"reason"`
	RecordedByID    *int64          `json:"recorded_by_id" db:"recorded_by_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Validate validates the refund data.
func (r *Refund) Validate() error {
	switch r.Method {
	case RefundGateway, RefundCredit:
	default:
		return errors.New("invalid refund method")
	}

	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("refund amount must be positive")
	}

	if r.Method == RefundGateway && r.GatewayRefundID == "" {
		return errors.New("gateway refund requires a gateway refund id")
	}

	return nil
}

// RefundedTotal sums the amounts of all refunds in the slice.
func RefundedTotal(refunds []*Refund) decimal.Decimal {
	total := decimal.Zero
	for _, r := range refunds {
		total = total.Add(r.Amount)
	}
	return total
}
