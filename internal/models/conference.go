package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Conference represents a single conference with its currency and capacity
// configuration. A TotalCapacity of zero means the venue is unlimited.
type Conference struct {
	ID                     int64     `json:"id" db:"id"`
	Slug                   string    `json:"slug" db:"slug"`
	Name                   string    `json:"name" db:"name"`
	Currency               string    `json:"currency" db:"currency"`
	TotalCapacity          int       `json:"total_capacity" db:"total_capacity"`
	PendingOrderExpiryMins int       `json:"pending_order_expiry_minutes" db:"pending_order_expiry_minutes"`
	StripeSecretKey        string    `json:"-" db:"stripe_secret_key"`
	StartDate              time.Time `json:"start_date" db:"start_date"`
	EndDate                time.Time `json:"end_date" db:"end_date"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

var conferenceSlugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validate validates the conference configuration.
func (c *Conference) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("conference name is required")
	}

	if !conferenceSlugRegex.MatchString(c.Slug) {
		return errors.New("conference slug must be lowercase letters, digits and hyphens")
	}

	if len(c.Currency) != 3 {
		return errors.New("currency must be a three-letter ISO code")
	}

	if c.TotalCapacity < 0 {
		return errors.New("total capacity cannot be negative")
	}

	if c.PendingOrderExpiryMins <= 0 {
		return errors.New("pending order expiry must be positive")
	}

	if c.EndDate.Before(c.StartDate) {
		return errors.New("end date cannot be before start date")
	}

	return nil
}

// HasCapacityLimit returns true when the conference enforces a venue cap.
func (c *Conference) HasCapacityLimit() bool {
	return c.TotalCapacity > 0
}

// HoldDuration returns how long a pending order reserves capacity.
func (c *Conference) HoldDuration() time.Duration {
	return time.Duration(c.PendingOrderExpiryMins) * time.Minute
}
