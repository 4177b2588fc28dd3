package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CartStatus represents the status of a cart
type CartStatus string

const (
	CartOpen       CartStatus = "open"
	CartCheckedOut CartStatus = "checked_out"
	CartExpired    CartStatus = "expired"
	CartAbandoned  CartStatus = "abandoned"
)

// Cart represents a user's open shopping cart for one conference. Carts are
// ephemeral: they are superseded by an Order at checkout or expired by a
// background sweep.
type Cart struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"user_id" db:"user_id"`
	ConferenceID int64      `json:"conference_id" db:"conference_id"`
	Status       CartStatus `json:"status" db:"status"`
	VoucherID    *int64     `json:"voucher_id" db:"voucher_id"`
	ExpiresAt    time.Time  `json:"expires_at" db:"expires_at"`
	Items        []CartItem `json:"items"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// CartItem references exactly one of a ticket type or an add-on, never both
// and never neither.
type CartItem struct {
	ID           int64  `json:"id" db:"id"`
	CartID       int64  `json:"cart_id" db:"cart_id"`
	TicketTypeID *int64 `json:"ticket_type_id" db:"ticket_type_id"`
	AddOnID      *int64 `json:"addon_id" db:"addon_id"`
	Quantity     int    `json:"quantity" db:"quantity"`
}

// Validate validates the cart item invariant.
func (i *CartItem) Validate() error {
	if i.TicketTypeID == nil && i.AddOnID == nil {
		return errors.New("cart item must reference a ticket type or an add-on")
	}

	if i.TicketTypeID != nil && i.AddOnID != nil {
		return errors.New("cart item cannot reference both a ticket type and an add-on")
	}

	if i.Quantity <= 0 {
		return errors.New("cart item quantity must be positive")
	}

	return nil
}

// IsTicket returns true when the item references a ticket type.
func (i *CartItem) IsTicket() bool {
	return i.TicketTypeID != nil
}

// IsOpen returns true if the cart is open.
func (c *Cart) IsOpen() bool {
	return c.Status == CartOpen
}

// IsExpired returns true if the cart's expiry has passed.
func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// TicketQuantity returns the total ticket (non add-on) quantity in the cart.
func (c *Cart) TicketQuantity() int {
	total := 0
	for _, item := range c.Items {
		if item.IsTicket() {
			total += item.Quantity
		}
	}
	return total
}

// CartSummaryLine is one priced line of a cart summary.
type CartSummaryLine struct {
	Description  string          `json:"description"`
	TicketTypeID *int64          `json:"ticket_type_id,omitempty"`
	AddOnID      *int64          `json:"addon_id,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	Discount     decimal.Decimal `json:"discount"`
}

// CartSummary is the priced view of a cart: per-line totals, the voucher
// discount and the grand total. It is computed, never stored.
type CartSummary struct {
	Lines       []CartSummaryLine `json:"lines"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	Discount    decimal.Decimal   `json:"discount"`
	Total       decimal.Decimal   `json:"total"`
	VoucherCode string            `json:"voucher_code,omitempty"`
}
