package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was collected
type PaymentMethod string

const (
	PaymentStripe PaymentMethod = "stripe"
	PaymentComp   PaymentMethod = "comp"
	PaymentManual PaymentMethod = "manual"
	PaymentCredit PaymentMethod = "credit"
)

// PaymentStatus represents the status of a payment attempt
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is one payment attempt or record against an order. An order may
// carry several payments: manual installments, gateway retries after a
// decline, or a credit application. All rows are kept as an audit trail.
type Payment struct {
	ID           int64           `json:"id" db:"id"`
	OrderID      int64           `json:"order_id" db:"order_id"`
	Method       PaymentMethod   `json:"method" db:"method"`
	Status       PaymentStatus   `json:"status" db:"status"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	IntentID     string          `json:"intent_id" db:"intent_id"`
	Reference    string          `json:"reference" db:"reference"`
	Note         string          `json:"note" db:"note"`
	RecordedByID *int64          `json:"recorded_by_id" db:"recorded_by_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the payment data.
func (p *Payment) Validate() error {
	switch p.Method {
	case PaymentStripe, PaymentComp, PaymentManual, PaymentCredit:
	default:
		return errors.New("invalid payment method")
	}

	switch p.Status {
	case PaymentPending, PaymentSucceeded, PaymentFailed:
	default:
		return errors.New("invalid payment status")
	}

	if p.Amount.IsNegative() {
		return errors.New("payment amount cannot be negative")
	}

	if p.Method == PaymentStripe && p.IntentID == "" {
		return errors.New("gateway payment requires an intent id")
	}

	return nil
}

// IsGateway returns true for payments collected through the payment gateway.
func (p *Payment) IsGateway() bool {
	return p.Method == PaymentStripe
}

// SucceededTotal sums the amounts of all succeeded payments in the slice.
func SucceededTotal(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentSucceeded {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// SucceededGatewayTotal sums the amounts of succeeded gateway payments.
// Manual, comp and credit payments are excluded; only money that went
// through the gateway can come back through it.
func SucceededGatewayTotal(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.IsGateway() && p.Status == PaymentSucceeded {
			total = total.Add(p.Amount)
		}
	}
	return total
}
