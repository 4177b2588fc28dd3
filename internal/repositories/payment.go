package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"conference-registration-platform/internal/models"
)

// PaymentRepository handles read access to payment records. Writes go
// through the payment store so they share the order's row lock.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, order_id, method, status, amount, intent_id,
	reference, note, recorded_by_id, created_at, updated_at`

// ListByOrder retrieves all payments for an order, oldest first
func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		err := rows.Scan(
			&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount, &p.IntentID,
			&p.Reference, &p.Note, &p.RecordedByID, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// GetByIntentID retrieves a payment by its gateway intent ID
func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1 ORDER BY id DESC LIMIT 1`

	p := &models.Payment{}
	err := r.db.QueryRowContext(ctx, query, intentID).Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount, &p.IntentID,
		&p.Reference, &p.Note, &p.RecordedByID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNoGatewayPayment
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by intent: %w", err)
	}

	return p, nil
}
