package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"conference-registration-platform/internal/models"
)

// CartRepository handles database operations for carts
type CartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Create creates a new open cart
func (r *CartRepository) Create(ctx context.Context, cart *models.Cart) error {
	query := `
		INSERT INTO carts (user_id, conference_id, status, voucher_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		cart.UserID, cart.ConferenceID, cart.Status, cart.VoucherID, cart.ExpiresAt,
	).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}

	return nil
}

// GetByID retrieves a cart by ID, including its items
func (r *CartRepository) GetByID(ctx context.Context, id int64) (*models.Cart, error) {
	query := `
		SELECT id, user_id, conference_id, status, voucher_id, expires_at, created_at, updated_at
		FROM carts
		WHERE id = $1`

	cart := &models.Cart{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cart.ID, &cart.UserID, &cart.ConferenceID, &cart.Status,
		&cart.VoucherID, &cart.ExpiresAt, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if err := r.loadItems(ctx, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

// GetOpenCart retrieves the user's open cart for a conference, including its
// items
func (r *CartRepository) GetOpenCart(ctx context.Context, userID, conferenceID int64) (*models.Cart, error) {
	query := `
		SELECT id, user_id, conference_id, status, voucher_id, expires_at, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND conference_id = $2 AND status = 'open'
		ORDER BY id DESC
		LIMIT 1`

	cart := &models.Cart{}
	err := r.db.QueryRowContext(ctx, query, userID, conferenceID).Scan(
		&cart.ID, &cart.UserID, &cart.ConferenceID, &cart.Status,
		&cart.VoucherID, &cart.ExpiresAt, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open cart: %w", err)
	}

	if err := r.loadItems(ctx, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (r *CartRepository) loadItems(ctx context.Context, cart *models.Cart) error {
	query := `
		SELECT id, cart_id, ticket_type_id, addon_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = nil
	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(&item.ID, &item.CartID, &item.TicketTypeID, &item.AddOnID, &item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}

	return rows.Err()
}

// UpsertItem adds quantity to an existing cart line for the same ticket type
// or add-on, or inserts a new line
func (r *CartRepository) UpsertItem(ctx context.Context, item *models.CartItem) error {
	var query string
	var refID int64
	if item.TicketTypeID != nil {
		query = `
			UPDATE cart_items SET quantity = quantity + $1
			WHERE cart_id = $2 AND ticket_type_id = $3
			RETURNING id, quantity`
		refID = *item.TicketTypeID
	} else {
		query = `
			UPDATE cart_items SET quantity = quantity + $1
			WHERE cart_id = $2 AND addon_id = $3
			RETURNING id, quantity`
		refID = *item.AddOnID
	}

	err := r.db.QueryRowContext(ctx, query, item.Quantity, item.CartID, refID).
		Scan(&item.ID, &item.Quantity)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	insert := `
		INSERT INTO cart_items (cart_id, ticket_type_id, addon_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err = r.db.QueryRowContext(ctx, insert,
		item.CartID, item.TicketTypeID, item.AddOnID, item.Quantity,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to insert cart item: %w", err)
	}

	return nil
}

// SetItemQuantity sets the quantity on a cart line, deleting it at zero
func (r *CartRepository) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, itemID)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE id = $2`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("failed to set cart item quantity: %w", err)
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

// RemoveItem removes a cart line
func (r *CartRepository) RemoveItem(ctx context.Context, itemID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// SetVoucher attaches or clears a voucher on a cart
func (r *CartRepository) SetVoucher(ctx context.Context, cartID int64, voucherID *int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET voucher_id = $1, updated_at = NOW() WHERE id = $2`,
		voucherID, cartID); err != nil {
		return fmt.Errorf("failed to set cart voucher: %w", err)
	}
	return nil
}

// Touch extends a cart's expiry
func (r *CartRepository) Touch(ctx context.Context, cartID int64, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET expires_at = $1, updated_at = NOW() WHERE id = $2`,
		expiresAt, cartID); err != nil {
		return fmt.Errorf("failed to extend cart expiry: %w", err)
	}
	return nil
}

// SetStatus updates a cart's status
func (r *CartRepository) SetStatus(ctx context.Context, cartID int64, status models.CartStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE carts SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, cartID)
	if err != nil {
		return fmt.Errorf("failed to set cart status: %w", err)
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

// ExpireStale marks open carts past their expiry as expired and returns how
// many were affected
func (r *CartRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE carts SET status = 'expired', updated_at = NOW()
		 WHERE status = 'open' AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale carts: %w", err)
	}

	return result.RowsAffected()
}
