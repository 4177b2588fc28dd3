package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"conference-registration-platform/internal/models"
)

// CreditRepository handles database operations for store credits
type CreditRepository struct {
	db *sql.DB
}

// NewCreditRepository creates a new credit repository
func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

const creditColumns = `id, user_id, conference_id, status, amount,
	remaining_amount, source_order_id, applied_order_id, reason,
	created_at, updated_at`

// GetByID retrieves a credit by ID
func (r *CreditRepository) GetByID(ctx context.Context, id int64) (*models.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE id = $1`

	c := &models.Credit{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.ConferenceID, &c.Status, &c.Amount,
		&c.RemainingAmount, &c.SourceOrderID, &c.AppliedOrderID, &c.Reason,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrCreditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit: %w", err)
	}

	return c, nil
}

// ListByUser retrieves a user's credits for a conference, newest first
func (r *CreditRepository) ListByUser(ctx context.Context, userID, conferenceID int64) ([]*models.Credit, error) {
	query := `SELECT ` + creditColumns + `
		FROM credits
		WHERE user_id = $1 AND conference_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}
	defer rows.Close()

	var credits []*models.Credit
	for rows.Next() {
		c := &models.Credit{}
		err := rows.Scan(
			&c.ID, &c.UserID, &c.ConferenceID, &c.Status, &c.Amount,
			&c.RemainingAmount, &c.SourceOrderID, &c.AppliedOrderID, &c.Reason,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		credits = append(credits, c)
	}

	return credits, rows.Err()
}
