package models

import "time"

// GatewayCustomer maps a user to a payment-gateway customer record. The
// mapping is keyed by user and conference because each conference carries its
// own gateway credentials.
type GatewayCustomer struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	ConferenceID int64     `json:"conference_id" db:"conference_id"`
	CustomerID   string    `json:"customer_id" db:"customer_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
