package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"conference-registration-platform/internal/models"
)

// GatewayCustomerRepository handles the user to gateway customer mapping
type GatewayCustomerRepository struct {
	db *sql.DB
}

// NewGatewayCustomerRepository creates a new gateway customer repository
func NewGatewayCustomerRepository(db *sql.DB) *GatewayCustomerRepository {
	return &GatewayCustomerRepository{db: db}
}

// Get retrieves the gateway customer ID for a user and conference. Returns
// an empty string when no mapping exists.
func (r *GatewayCustomerRepository) Get(ctx context.Context, userID, conferenceID int64) (string, error) {
	query := `SELECT customer_id FROM gateway_customers WHERE user_id = $1 AND conference_id = $2`

	var customerID string
	err := r.db.QueryRowContext(ctx, query, userID, conferenceID).Scan(&customerID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get gateway customer: %w", err)
	}

	return customerID, nil
}

// Save stores the gateway customer mapping, keeping the first one on
// concurrent creation
func (r *GatewayCustomerRepository) Save(ctx context.Context, gc *models.GatewayCustomer) error {
	query := `
		INSERT INTO gateway_customers (user_id, conference_id, customer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, conference_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, gc.UserID, gc.ConferenceID, gc.CustomerID); err != nil {
		return fmt.Errorf("failed to save gateway customer: %w", err)
	}

	return nil
}
