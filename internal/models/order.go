package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderPending           OrderStatus = "pending"
	OrderPaid              OrderStatus = "paid"
	OrderCancelled         OrderStatus = "cancelled"
	OrderRefunded          OrderStatus = "refunded"
	OrderPartiallyRefunded OrderStatus = "partially_refunded"
)

// Order represents a finalized registration order. Orders are immutable after
// creation except for status and refund bookkeeping. A pending order holds
// ticket inventory until HoldExpiresAt.
type Order struct {
	ID             int64           `json:"id" db:"id"`
	ConferenceID   int64           `json:"conference_id" db:"conference_id"`
	UserID         int64           `json:"user_id" db:"user_id"`
	Reference      string          `json:"reference" db:"reference"`
	Status         OrderStatus     `json:"status" db:"status"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	Total          decimal.Decimal `json:"total" db:"total"`
	VoucherID      *int64          `json:"voucher_id" db:"voucher_id"`
	BillingName    string          `json:"billing_name" db:"billing_name"`
	BillingEmail   string          `json:"billing_email" db:"billing_email"`
	HoldExpiresAt  *time.Time      `json:"hold_expires_at" db:"hold_expires_at"`
	LineItems      []OrderLineItem `json:"line_items"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderLineItem is an immutable snapshot of one cart line at checkout time.
// The ticket type or add-on reference may later be nulled by deletion without
// losing the snapshot.
type OrderLineItem struct {
	ID             int64           `json:"id" db:"id"`
	OrderID        int64           `json:"order_id" db:"order_id"`
	Description    string          `json:"description" db:"description"`
	Quantity       int             `json:"quantity" db:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	LineTotal      decimal.Decimal `json:"line_total" db:"line_total"`
	TicketTypeID   *int64          `json:"ticket_type_id" db:"ticket_type_id"`
	AddOnID        *int64          `json:"addon_id" db:"addon_id"`
}

var (
	// Order reference format: REG-YYYYMMDD-XXXXXX (e.g. REG-20260301-482910)
	orderReferenceRegex = regexp.MustCompile(`^REG-\d{8}-\d{6}$`)
	orderEmailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Validate validates the order data.
func (o *Order) Validate() error {
	if !orderReferenceRegex.MatchString(o.Reference) {
		return errors.New("order reference format is invalid")
	}

	if err := validateOrderStatus(o.Status); err != nil {
		return err
	}

	if o.Subtotal.IsNegative() || o.DiscountAmount.IsNegative() || o.Total.IsNegative() {
		return errors.New("order amounts cannot be negative")
	}

	if !o.Subtotal.Sub(o.DiscountAmount).Equal(o.Total) {
		return errors.New("order total must equal subtotal minus discount")
	}

	return validateBillingInfo(o.BillingEmail, o.BillingName)
}

// ValidateLineItems checks the snapshot invariant: line totals minus the
// order-level discount must equal the order total.
func (o *Order) ValidateLineItems() error {
	if len(o.LineItems) == 0 {
		return errors.New("order must have at least one line item")
	}

	sum := decimal.Zero
	for _, line := range o.LineItems {
		if line.Quantity <= 0 {
			return errors.New("line item quantity must be positive")
		}
		sum = sum.Add(line.LineTotal)
	}

	if !sum.Sub(o.DiscountAmount).Equal(o.Total) {
		return errors.New("line totals minus discount must equal order total")
	}

	return nil
}

func validateOrderStatus(status OrderStatus) error {
	switch status {
	case OrderPending, OrderPaid, OrderCancelled, OrderRefunded, OrderPartiallyRefunded:
		return nil
	default:
		return errors.New("invalid order status")
	}
}

func validateBillingInfo(billingEmail, billingName string) error {
	if billingEmail == "" {
		return errors.New("billing email is required")
	}

	if strings.TrimSpace(billingName) == "" {
		return errors.New("billing name is required")
	}

	if len(billingEmail) > 255 || len(billingName) > 255 {
		return errors.New("billing details must be less than 255 characters")
	}

	if !orderEmailRegex.MatchString(billingEmail) {
		return errors.New("billing email format is invalid")
	}

	return nil
}

// GenerateOrderReference generates a unique order reference. The reference
// doubles as the gateway idempotency key, so retrying payment initiation for
// the same order is safe.
func GenerateOrderReference() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to timestamp-based generation if crypto/rand fails
		return fmt.Sprintf("REG-%s-%06d", dateStr, now.UnixNano()%1000000)
	}

	return fmt.Sprintf("REG-%s-%06d", dateStr, randomNum.Int64())
}

// IsPending returns true if the order is awaiting payment.
func (o *Order) IsPending() bool {
	return o.Status == OrderPending
}

// IsPaid returns true if the order has been paid.
func (o *Order) IsPaid() bool {
	return o.Status == OrderPaid
}

// IsRefundable returns true if the order can receive a refund.
func (o *Order) IsRefundable() bool {
	return o.Status == OrderPaid || o.Status == OrderPartiallyRefunded
}

// HasLiveHold returns true when a pending order still reserves capacity.
func (o *Order) HasLiveHold(now time.Time) bool {
	return o.Status == OrderPending && o.HoldExpiresAt != nil && o.HoldExpiresAt.After(now)
}

// CanTransitionTo reports whether the status change is allowed by the order
// state machine: PENDING -> {PAID, CANCELLED}; PAID -> {REFUNDED,
// PARTIALLY_REFUNDED}; PARTIALLY_REFUNDED -> {REFUNDED}.
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	switch o.Status {
	case OrderPending:
		return next == OrderPaid || next == OrderCancelled
	case OrderPaid:
		return next == OrderRefunded || next == OrderPartiallyRefunded
	case OrderPartiallyRefunded:
		return next == OrderRefunded
	default:
		return false
	}
}

// TicketQuantity returns the total ticket (non add-on) quantity on the order.
func (o *Order) TicketQuantity() int {
	total := 0
	for _, line := range o.LineItems {
		if line.AddOnID == nil {
			total += line.Quantity
		}
	}
	return total
}

// GetStatusDisplayName returns a human-readable status name.
func (o *Order) GetStatusDisplayName() string {
	switch o.Status {
	case OrderPending:
		return "Pending Payment"
	case OrderPaid:
		return "Paid"
	case OrderCancelled:
		return "Cancelled"
	case OrderRefunded:
		return "Refunded"
	case OrderPartiallyRefunded:
		return "Partially Refunded"
	default:
		return string(o.Status)
	}
}
