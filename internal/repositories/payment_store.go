package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
)

// OrderTx is the set of operations available while an order row is locked.
// Implementations run every call inside the same transaction, so a gateway
// failure inside the callback rolls back all of them.
type OrderTx interface {
	// Order returns the locked order with its line items.
	Order(ctx context.Context) (*models.Order, error)

	// Payments returns all payments for the locked order.
	Payments(ctx context.Context) ([]*models.Payment, error)

	// InsertPayment persists a payment record against the locked order.
	InsertPayment(ctx context.Context, p *models.Payment) error

	// SetPaymentStatus updates one payment's status.
	SetPaymentStatus(ctx context.Context, paymentID int64, status models.PaymentStatus) error

	// SetOrderStatus transitions the order. clearHold releases the
	// capacity hold together with the transition.
	SetOrderStatus(ctx context.Context, status models.OrderStatus, clearHold bool) error

	// RefundedTotal returns the total already refunded against the
	// locked order.
	RefundedTotal(ctx context.Context) (decimal.Decimal, error)

	// InsertRefund persists a refund record against the locked order.
	InsertRefund(ctx context.Context, r *models.Refund) error

	// InsertCredit persists a store credit.
	InsertCredit(ctx context.Context, c *models.Credit) error

	// DecrementVoucherUse releases one use of the voucher. Usage never
	// goes below zero.
	DecrementVoucherUse(ctx context.Context, voucherID int64) error
}

// CreditTx extends OrderTx with access to a locked credit row.
type CreditTx interface {
	OrderTx

	// Credit returns the locked credit.
	Credit(ctx context.Context) (*models.Credit, error)

	// UpdateCredit persists the credit's balance and status.
	UpdateCredit(ctx context.Context, c *models.Credit) error
}

// PaymentStore serializes payment and refund mutations per order. Locking the
// order row makes the read-decide-write sequences in the payment services
// atomic: two settlement attempts for the same order run one after the other.
type PaymentStore struct {
	db *sql.DB
}

// NewPaymentStore creates a new payment store
func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// WithOrderLock runs fn inside a transaction holding a row lock on the order
func (s *PaymentStore) WithOrderLock(ctx context.Context, orderID int64, fn func(OrderTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin payment transaction: %w", err)
	}
	defer tx.Rollback()

	ot, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if err := fn(ot); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}

	return nil
}

// WithCreditAndOrderLock runs fn holding row locks on both the credit and the
// order. The credit is locked first to keep lock ordering consistent.
func (s *PaymentStore) WithCreditAndOrderLock(ctx context.Context, creditID, orderID int64, fn func(CreditTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM credits WHERE id = $1 FOR UPDATE`, creditID).Scan(&id)
	if err == sql.ErrNoRows {
		return models.ErrCreditNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock credit: %w", err)
	}

	ot, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if err := fn(&creditTx{orderTx: ot, creditID: creditID}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credit application: %w", err)
	}

	return nil
}

func lockOrder(ctx context.Context, tx *sql.Tx, orderID int64) (*orderTx, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return &orderTx{tx: tx, orderID: orderID}, nil
}

type orderTx struct {
	tx      *sql.Tx
	orderID int64
}

func (t *orderTx) Order(ctx context.Context) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrderRow(t.tx.QueryRowContext(ctx, query, t.orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to get locked order: %w", err)
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, order_id, description, quantity, unit_price, discount_amount,
			line_total, ticket_type_id, addon_id
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY id ASC`, t.orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLineItem
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.Description, &line.Quantity,
			&line.UnitPrice, &line.DiscountAmount, &line.LineTotal,
			&line.TicketTypeID, &line.AddOnID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line item: %w", err)
		}
		o.LineItems = append(o.LineItems, line)
	}

	return o, rows.Err()
}

func (t *orderTx) Payments(ctx context.Context) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY id ASC`

	rows, err := t.tx.QueryContext(ctx, query, t.orderID)
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

func (t *orderTx) InsertPayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, method, status, amount, intent_id,
			reference, note, recorded_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowContext(ctx, query,
		t.orderID, p.Method, p.Status, p.Amount, p.IntentID,
		p.Reference, p.Note, p.RecordedByID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	p.OrderID = t.orderID

	return nil
}

func (t *orderTx) SetOrderStatus(ctx context.Context, status models.OrderStatus, clearHold bool) error {
	var err error
	if clearHold {
		_, err = t.tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, hold_expires_at = NULL, updated_at = NOW()
			WHERE id = $2`, status, t.orderID)
	} else {
		_, err = t.tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2`, status, t.orderID)
	}
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
	}

	return nil
}

func (t *orderTx) SetPaymentStatus(ctx context.Context, paymentID int64, status models.PaymentStatus) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, paymentID)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}

	return nil
}

func (t *orderTx) RefundedTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE order_id = $1`,
		t.orderID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum refunds: %w", err)
	}

	return total, nil
}

func (t *orderTx) InsertRefund(ctx context.Context, r *models.Refund) error {
	query := `
		INSERT INTO refunds (order_id, method, amount, gateway_refund_id, reason, recorded_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := t.tx.QueryRowContext(ctx, query,
		t.orderID, r.Method, r.Amount, r.GatewayRefundID, r.Reason, r.RecordedByID,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert refund: %w", err)
	}
	r.OrderID = t.orderID

	return nil
}

func (t *orderTx) InsertCredit(ctx context.Context, c *models.Credit) error {
	query := `
		INSERT INTO credits (user_id, conference_id, status, amount,
			remaining_amount, source_order_id, applied_order_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowContext(ctx, query,
		c.UserID, c.ConferenceID, c.Status, c.Amount,
		c.RemainingAmount, c.SourceOrderID, c.AppliedOrderID, c.Reason,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert credit: %w", err)
	}

	return nil
}

func (t *orderTx) DecrementVoucherUse(ctx context.Context, voucherID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE vouchers SET times_used = times_used - 1, updated_at = NOW()
		WHERE id = $1 AND times_used > 0`, voucherID)
	if err != nil {
		return fmt.Errorf("failed to decrement voucher usage: %w", err)
	}

	return nil
}

type creditTx struct {
	*orderTx
	creditID int64
}

func (t *creditTx) Credit(ctx context.Context) (*models.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE id = $1`

	c := &models.Credit{}
	err := t.tx.QueryRowContext(ctx, query, t.creditID).Scan(
		&c.ID, &c.UserID, &c.ConferenceID, &c.Status, &c.Amount,
		&c.RemainingAmount, &c.SourceOrderID, &c.AppliedOrderID, &c.Reason,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get locked credit: %w", err)
	}

	return c, nil
}

func (t *creditTx) UpdateCredit(ctx context.Context, c *models.Credit) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE credits
		SET status = $1, remaining_amount = $2, applied_order_id = $3, updated_at = NOW()
		WHERE id = $4`,
		c.Status, c.RemainingAmount, c.AppliedOrderID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update credit: %w", err)
	}

	return nil
}
