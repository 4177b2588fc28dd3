package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// VoucherType represents the kind of discount a voucher grants
type VoucherType string

const (
	VoucherPercentage VoucherType = "percentage"
	VoucherFixed      VoucherType = "fixed"
	VoucherComp       VoucherType = "comp"
)

// Voucher represents a redeemable discount or comp code. Codes are unique per
// conference. TicketTypeIDs/AddOnIDs, when non-empty, restrict the discount to
// those items; an empty restriction list means the voucher applies to
// everything in the cart.
type Voucher struct {
	ID                   int64           `json:"id" db:"id"`
	ConferenceID         int64           `json:"conference_id" db:"conference_id"`
	Code                 string          `json:"code" db:"code"`
	Type                 VoucherType     `json:"voucher_type" db:"voucher_type"`
	DiscountValue        decimal.Decimal `json:"discount_value" db:"discount_value"`
	MaxUses              int             `json:"max_uses" db:"max_uses"`
	TimesUsed            int             `json:"times_used" db:"times_used"`
	ValidFrom            *time.Time      `json:"valid_from" db:"valid_from"`
	ValidUntil           *time.Time      `json:"valid_until" db:"valid_until"`
	UnlocksHiddenTickets bool            `json:"unlocks_hidden_tickets" db:"unlocks_hidden_tickets"`
	Active               bool            `json:"active" db:"active"`
	TicketTypeIDs        []int64         `json:"ticket_type_ids"`
	AddOnIDs             []int64         `json:"addon_ids"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the voucher data.
func (v *Voucher) Validate() error {
	if v.Code == "" {
		return errors.New("voucher code is required")
	}

	switch v.Type {
	case VoucherPercentage:
		if v.DiscountValue.LessThanOrEqual(decimal.Zero) || v.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New("percentage discount must be between 0 and 100")
		}
	case VoucherFixed:
		if v.DiscountValue.LessThanOrEqual(decimal.Zero) {
			return errors.New("fixed discount must be positive")
		}
	case VoucherComp:
		// Comp vouchers zero the whole order; DiscountValue is ignored.
	default:
		return errors.New("invalid voucher type")
	}

	if v.MaxUses <= 0 {
		return errors.New("max uses must be positive")
	}

	if v.TimesUsed < 0 {
		return errors.New("times used cannot be negative")
	}

	if v.ValidFrom != nil && v.ValidUntil != nil && v.ValidUntil.Before(*v.ValidFrom) {
		return errors.New("validity window end cannot be before its start")
	}

	return nil
}

// IsRedeemable returns true when the voucher is active, inside its validity
// window and has uses remaining.
func (v *Voucher) IsRedeemable(now time.Time) bool {
	if !v.Active {
		return false
	}
	if v.TimesUsed >= v.MaxUses {
		return false
	}
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return false
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return false
	}
	return true
}

// IsExhausted returns true when the voucher has no uses remaining.
func (v *Voucher) IsExhausted() bool {
	return v.TimesUsed >= v.MaxUses
}

// AppliesToTicketType returns true when the voucher's discount covers the
// given ticket type.
func (v *Voucher) AppliesToTicketType(ticketTypeID int64) bool {
	if len(v.TicketTypeIDs) == 0 && len(v.AddOnIDs) == 0 {
		return true
	}
	for _, id := range v.TicketTypeIDs {
		if id == ticketTypeID {
			return true
		}
	}
	return false
}

// AppliesToAddOn returns true when the voucher's discount covers the given
// add-on.
func (v *Voucher) AppliesToAddOn(addonID int64) bool {
	if len(v.TicketTypeIDs) == 0 && len(v.AddOnIDs) == 0 {
		return true
	}
	for _, id := range v.AddOnIDs {
		if id == addonID {
			return true
		}
	}
	return false
}

// DiscountFor computes the discount the voucher grants against the eligible
// subtotal. Percentage vouchers take their share of the eligible subtotal,
// fixed vouchers are capped at the eligible subtotal, and comp vouchers zero
// the whole eligible subtotal.
func (v *Voucher) DiscountFor(eligibleSubtotal decimal.Decimal) decimal.Decimal {
	if eligibleSubtotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	switch v.Type {
	case VoucherPercentage:
		return eligibleSubtotal.Mul(v.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	case VoucherFixed:
		if v.DiscountValue.GreaterThan(eligibleSubtotal) {
			return eligibleSubtotal
		}
		return v.DiscountValue
	case VoucherComp:
		return eligibleSubtotal
	default:
		return decimal.Zero
	}
}
