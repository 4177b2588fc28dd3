package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TicketType represents a purchasable ticket category for a conference.
// TotalQuantity of zero means the type itself is unlimited (the venue cap may
// still apply). Hidden ticket types are only purchasable through a voucher
// that unlocks hidden tickets.
type TicketType struct {
	ID             int64           `json:"id" db:"id"`
	ConferenceID   int64           `json:"conference_id" db:"conference_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description" db:"description"`
	Price          decimal.Decimal `json:"price" db:"price"`
	TotalQuantity  int             `json:"total_quantity" db:"total_quantity"`
	LimitPerUser   int             `json:"limit_per_user" db:"limit_per_user"`
	Active         bool            `json:"active" db:"active"`
	Hidden         bool            `json:"hidden" db:"hidden"`
	AvailableFrom  *time.Time      `json:"available_from" db:"available_from"`
	AvailableUntil *time.Time      `json:"available_until" db:"available_until"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the ticket type data.
func (t *TicketType) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("ticket type name is required")
	}

	if t.Price.IsNegative() {
		return errors.New("ticket price cannot be negative")
	}

	if t.TotalQuantity < 0 {
		return errors.New("total quantity cannot be negative")
	}

	if t.LimitPerUser < 0 {
		return errors.New("limit per user cannot be negative")
	}

	if t.AvailableFrom != nil && t.AvailableUntil != nil && t.AvailableUntil.Before(*t.AvailableFrom) {
		return errors.New("sale window end cannot be before its start")
	}

	return nil
}

// IsOnSale returns true when the ticket type is active and inside its sale
// window at the given time.
func (t *TicketType) IsOnSale(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.AvailableFrom != nil && now.Before(*t.AvailableFrom) {
		return false
	}
	if t.AvailableUntil != nil && now.After(*t.AvailableUntil) {
		return false
	}
	return true
}

// AddOn represents a purchasable extra (workshop seat, dinner, t-shirt) that
// does not consume venue capacity. RequiredTicketTypeIDs, when non-empty,
// restricts the add-on to carts containing one of those ticket types.
type AddOn struct {
	ID                    int64           `json:"id" db:"id"`
	ConferenceID          int64           `json:"conference_id" db:"conference_id"`
	Name                  string          `json:"name" db:"name"`
	Description           string          `json:"description" db:"description"`
	Price                 decimal.Decimal `json:"price" db:"price"`
	TotalQuantity         int             `json:"total_quantity" db:"total_quantity"`
	LimitPerUser          int             `json:"limit_per_user" db:"limit_per_user"`
	Active                bool            `json:"active" db:"active"`
	AvailableFrom         *time.Time      `json:"available_from" db:"available_from"`
	AvailableUntil        *time.Time      `json:"available_until" db:"available_until"`
	RequiredTicketTypeIDs []int64         `json:"required_ticket_type_ids"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the add-on data.
func (a *AddOn) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("add-on name is required")
	}

	if a.Price.IsNegative() {
		return errors.New("add-on price cannot be negative")
	}

	if a.TotalQuantity < 0 {
		return errors.New("total quantity cannot be negative")
	}

	if a.LimitPerUser < 0 {
		return errors.New("limit per user cannot be negative")
	}

	return nil
}

// IsOnSale returns true when the add-on is active and inside its sale window.
func (a *AddOn) IsOnSale(now time.Time) bool {
	if !a.Active {
		return false
	}
	if a.AvailableFrom != nil && now.Before(*a.AvailableFrom) {
		return false
	}
	if a.AvailableUntil != nil && now.After(*a.AvailableUntil) {
		return false
	}
	return true
}

// RequiresTicketType returns true when the add-on can only be bought together
// with one of the listed ticket types.
func (a *AddOn) RequiresTicketType() bool {
	return len(a.RequiredTicketTypeIDs) > 0
}
