package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
)

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, reference, user_id, conference_id, status, subtotal,
	discount_amount, total, voucher_id, billing_name, billing_email,
	hold_expires_at, created_at, updated_at`

func scanOrderRow(scanner interface{ Scan(...interface{}) error }) (*models.Order, error) {
	o := &models.Order{}
	err := scanner.Scan(
		&o.ID, &o.Reference, &o.UserID, &o.ConferenceID, &o.Status,
		&o.Subtotal, &o.DiscountAmount, &o.Total, &o.VoucherID,
		&o.BillingName, &o.BillingEmail, &o.HoldExpiresAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// GetByID retrieves an order by ID, including its line items
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrderRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadLineItems(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// GetByReference retrieves an order by its human-facing reference
func (r *OrderRepository) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE reference = $1`

	o, err := scanOrderRow(r.db.QueryRowContext(ctx, query, reference))
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order by reference: %w", err)
	}

	if err := r.loadLineItems(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

func (r *OrderRepository) loadLineItems(ctx context.Context, o *models.Order) error {
	query := `
		SELECT id, order_id, description, quantity, unit_price, discount_amount,
			line_total, ticket_type_id, addon_id
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, o.ID)
	if err != nil {
		return fmt.Errorf("failed to load order line items: %w", err)
	}
	defer rows.Close()

	o.LineItems = nil
	for rows.Next() {
		var line models.OrderLineItem
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.Description, &line.Quantity,
			&line.UnitPrice, &line.DiscountAmount, &line.LineTotal,
			&line.TicketTypeID, &line.AddOnID,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order line item: %w", err)
		}
		o.LineItems = append(o.LineItems, line)
	}

	return rows.Err()
}

// ListByUser retrieves a user's orders for a conference, newest first
func (r *OrderRepository) ListByUser(ctx context.Context, userID, conferenceID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND conference_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if err := r.loadLineItems(ctx, o); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// SearchFilters narrows an admin order search
type SearchFilters struct {
	ConferenceID int64
	Status       models.OrderStatus
	Query        string
	Limit        int
	Offset       int
}

// Search retrieves orders matching the filters. Query matches the order
// reference or billing details, case-insensitively.
func (r *OrderRepository) Search(ctx context.Context, f SearchFilters) ([]*models.Order, error) {
	var conditions []string
	var args []interface{}

	conditions = append(conditions, fmt.Sprintf("conference_id = $%d", len(args)+1))
	args = append(args, f.ConferenceID)

	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, f.Status)
	}

	if f.Query != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(reference ILIKE $%d OR billing_name ILIKE $%d OR billing_email ILIKE $%d)", n, n, n))
		args = append(args, "%"+f.Query+"%")
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC
		LIMIT ` + fmt.Sprintf("$%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if err := r.loadLineItems(ctx, o); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// FindExpiredPending retrieves pending orders whose capacity hold has lapsed
func (r *OrderRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'pending' AND hold_expires_at IS NOT NULL AND hold_expires_at < $1
		ORDER BY hold_expires_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired pending orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// PaidTicketQuantity returns how many tickets of the given type the user has
// on paid or partially refunded orders. Used for per-user purchase limits.
func (r *OrderRepository) PaidTicketQuantity(ctx context.Context, userID, ticketTypeID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(li.quantity), 0)
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.user_id = $1 AND li.ticket_type_id = $2
		  AND o.status IN ('paid', 'partially_refunded')`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID, ticketTypeID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count paid tickets: %w", err)
	}

	return total, nil
}

// PaidAddOnQuantity returns how many of the given add-on the user has on paid
// or partially refunded orders
func (r *OrderRepository) PaidAddOnQuantity(ctx context.Context, userID, addonID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(li.quantity), 0)
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.user_id = $1 AND li.addon_id = $2
		  AND o.status IN ('paid', 'partially_refunded')`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID, addonID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count paid add-ons: %w", err)
	}

	return total, nil
}

// SoldQuantityByTicketType returns the committed quantity per ticket type for
// a conference: paid, partially refunded, and pending orders with a live hold
func (r *OrderRepository) SoldQuantityByTicketType(ctx context.Context, conferenceID int64, now time.Time) (map[int64]int, error) {
	query := `
		SELECT li.ticket_type_id, COALESCE(SUM(li.quantity), 0)
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.conference_id = $1 AND li.ticket_type_id IS NOT NULL
		  AND (o.status IN ('paid', 'partially_refunded')
			OR (o.status = 'pending' AND o.hold_expires_at > $2))
		GROUP BY li.ticket_type_id`

	rows, err := r.db.QueryContext(ctx, query, conferenceID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count sold tickets: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan sold ticket count: %w", err)
		}
		counts[id] = qty
	}

	return counts, rows.Err()
}

// SoldQuantityByAddOn returns the committed quantity per add-on for a
// conference
func (r *OrderRepository) SoldQuantityByAddOn(ctx context.Context, conferenceID int64, now time.Time) (map[int64]int, error) {
	query := `
		SELECT li.addon_id, COALESCE(SUM(li.quantity), 0)
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.conference_id = $1 AND li.addon_id IS NOT NULL
		  AND (o.status IN ('paid', 'partially_refunded')
			OR (o.status = 'pending' AND o.hold_expires_at > $2))
		GROUP BY li.addon_id`

	rows, err := r.db.QueryContext(ctx, query, conferenceID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count sold add-ons: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan sold add-on count: %w", err)
		}
		counts[id] = qty
	}

	return counts, rows.Err()
}

// Statistics summarizes orders for a conference
type Statistics struct {
	TotalOrders   int             `json:"total_orders"`
	PaidOrders    int             `json:"paid_orders"`
	PendingOrders int             `json:"pending_orders"`
	TicketsSold   int             `json:"tickets_sold"`
	GrossRevenue  decimal.Decimal `json:"gross_revenue"`
}

// GetStatistics computes order statistics for a conference. Revenue counts
// paid and partially refunded orders.
func (r *OrderRepository) GetStatistics(ctx context.Context, conferenceID int64) (*Statistics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('paid', 'partially_refunded', 'refunded')),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(total) FILTER (WHERE status IN ('paid', 'partially_refunded')), 0)
		FROM orders
		WHERE conference_id = $1`

	stats := &Statistics{}
	err := r.db.QueryRowContext(ctx, query, conferenceID).Scan(
		&stats.TotalOrders, &stats.PaidOrders, &stats.PendingOrders, &stats.GrossRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get order statistics: %w", err)
	}

	ticketQuery := `
		SELECT COALESCE(SUM(li.quantity), 0)
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.conference_id = $1 AND li.addon_id IS NULL
		  AND o.status IN ('paid', 'partially_refunded')`

	if err := r.db.QueryRowContext(ctx, ticketQuery, conferenceID).Scan(&stats.TicketsSold); err != nil {
		return nil, fmt.Errorf("failed to count tickets sold: %w", err)
	}

	return stats, nil
}
