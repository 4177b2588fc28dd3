package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"conference-registration-platform/internal/models"
)

// CheckoutTx is the set of operations available while the conference row is
// locked. Implementations run every call inside the same transaction.
type CheckoutTx interface {
	// Capacity returns total_capacity as read from the locked conference
	// row. A staff edit committed before the lock was taken is visible
	// here even when the caller is holding a stale conference record.
	Capacity(ctx context.Context) (int, error)

	// SoldTicketCount returns the conference's committed ticket quantity:
	// paid and partially refunded orders plus pending orders with a live
	// capacity hold.
	SoldTicketCount(ctx context.Context, now time.Time) (int, error)

	// InsertOrder persists an order with its line items.
	InsertOrder(ctx context.Context, order *models.Order) error

	// IncrementVoucherUse consumes one use of the voucher. Returns
	// models.ErrVoucherExhausted when no uses remain.
	IncrementVoucherUse(ctx context.Context, voucherID int64) error

	// MarkCartCheckedOut transitions the cart out of the open state.
	MarkCartCheckedOut(ctx context.Context, cartID int64) error
}

// CheckoutStore serializes checkouts per conference. WithConferenceLock
// acquires a row lock on the conference, runs fn, and commits only when fn
// returns nil. Concurrent checkouts for the same conference queue behind the
// lock, so capacity checks inside fn see every committed sale.
type CheckoutStore struct {
	db *sql.DB
}

// NewCheckoutStore creates a new checkout store
func NewCheckoutStore(db *sql.DB) *CheckoutStore {
	return &CheckoutStore{db: db}
}

// WithConferenceLock runs fn inside a transaction holding a row lock on the
// conference
func (s *CheckoutStore) WithConferenceLock(ctx context.Context, conferenceID int64, fn func(CheckoutTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT total_capacity FROM conferences WHERE id = $1 FOR UPDATE`, conferenceID).Scan(&capacity)
	if err == sql.ErrNoRows {
		return models.ErrConferenceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock conference: %w", err)
	}

	if err := fn(&checkoutTx{tx: tx, conferenceID: conferenceID, capacity: capacity}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout: %w", err)
	}

	return nil
}

type checkoutTx struct {
	tx           *sql.Tx
	conferenceID int64
	capacity     int
}

func (t *checkoutTx) Capacity(ctx context.Context) (int, error) {
	return t.capacity, nil
}

func (t *checkoutTx) SoldTicketCount(ctx context.Context, now time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(li.quantity), 0)
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.conference_id = $1 AND li.addon_id IS NULL
		  AND (o.status IN ('paid', 'partially_refunded')
			OR (o.status = 'pending' AND o.hold_expires_at > $2))`

	var count int
	if err := t.tx.QueryRowContext(ctx, query, t.conferenceID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sold tickets: %w", err)
	}

	return count, nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (reference, user_id, conference_id, status, subtotal,
			discount_amount, total, voucher_id, billing_name, billing_email, hold_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowContext(ctx, query,
		order.Reference, order.UserID, order.ConferenceID, order.Status,
		order.Subtotal, order.DiscountAmount, order.Total, order.VoucherID,
		order.BillingName, order.BillingEmail, order.HoldExpiresAt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.LineItems {
		line := &order.LineItems[i]
		line.OrderID = order.ID

		err := t.tx.QueryRowContext(ctx, `
			INSERT INTO order_line_items (order_id, description, quantity,
				unit_price, discount_amount, line_total, ticket_type_id, addon_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			line.OrderID, line.Description, line.Quantity, line.UnitPrice,
			line.DiscountAmount, line.LineTotal, line.TicketTypeID, line.AddOnID,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order line item: %w", err)
		}
	}

	return nil
}

func (t *checkoutTx) IncrementVoucherUse(ctx context.Context, voucherID int64) error {
	// The times_used < max_uses guard makes concurrent redemptions of the
	// last use lose cleanly instead of overshooting.
	result, err := t.tx.ExecContext(ctx, `
		UPDATE vouchers
		SET times_used = times_used + 1, updated_at = NOW()
		WHERE id = $1 AND times_used < max_uses`, voucherID)
	if err != nil {
		return fmt.Errorf("failed to increment voucher usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrVoucherExhausted
	}

	return nil
}

func (t *checkoutTx) MarkCartCheckedOut(ctx context.Context, cartID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE carts SET status = 'checked_out', updated_at = NOW()
		WHERE id = $1 AND status = 'open'`, cartID)
	if err != nil {
		return fmt.Errorf("failed to mark cart checked out: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrCartNotFound
	}

	return nil
}
