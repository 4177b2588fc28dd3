package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Sponsor represents a conference sponsor placement, synced from the sponsor
// source. Creating a sponsor with a positive CompTicketCount triggers
// complimentary voucher issuance through an explicit service hook.
type Sponsor struct {
	ID              int64     `json:"id" db:"id"`
	ConferenceID    int64     `json:"conference_id" db:"conference_id"`
	UpstreamID      int64     `json:"upstream_id" db:"upstream_id"`
	Slug            string    `json:"slug" db:"slug"`
	Name            string    `json:"name" db:"name"`
	Level           string    `json:"level" db:"level"`
	URL             string    `json:"url" db:"url"`
	LogoURL         string    `json:"logo_url" db:"logo_url"`
	CompTicketCount int       `json:"comp_ticket_count" db:"comp_ticket_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

var sponsorSlugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validate validates the sponsor data.
func (s *Sponsor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("sponsor name is required")
	}

	if !sponsorSlugRegex.MatchString(s.Slug) {
		return errors.New("sponsor slug must be lowercase letters, digits and hyphens")
	}

	if s.CompTicketCount < 0 {
		return errors.New("comp ticket count cannot be negative")
	}

	return nil
}
