package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"conference-registration-platform/internal/models"
)

// VoucherRepository handles database operations for vouchers
type VoucherRepository struct {
	db *sql.DB
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// Create creates a new voucher with its item restrictions
func (r *VoucherRepository) Create(ctx context.Context, v *models.Voucher) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertVoucher(ctx, tx, v); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateBatch creates many vouchers in one transaction. Either every voucher
// is created or none are.
func (r *VoucherRepository) CreateBatch(ctx context.Context, vouchers []*models.Voucher) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, v := range vouchers {
		if err := insertVoucher(ctx, tx, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertVoucher(ctx context.Context, tx *sql.Tx, v *models.Voucher) error {
	query := `
		INSERT INTO vouchers (conference_id, code, voucher_type, discount_value,
			max_uses, times_used, valid_from, valid_until, unlocks_hidden_tickets, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowContext(ctx, query,
		v.ConferenceID, v.Code, v.Type, v.DiscountValue,
		v.MaxUses, v.TimesUsed, v.ValidFrom, v.ValidUntil,
		v.UnlocksHiddenTickets, v.Active,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return models.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	for _, ticketTypeID := range v.TicketTypeIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO voucher_ticket_types (voucher_id, ticket_type_id) VALUES ($1, $2)`,
			v.ID, ticketTypeID,
		)
		if err != nil {
			return fmt.Errorf("failed to link voucher ticket type: %w", err)
		}
	}

	for _, addonID := range v.AddOnIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO voucher_addons (voucher_id, addon_id) VALUES ($1, $2)`,
			v.ID, addonID,
		)
		if err != nil {
			return fmt.Errorf("failed to link voucher add-on: %w", err)
		}
	}

	return nil
}

const voucherColumns = `id, conference_id, code, voucher_type, discount_value,
	max_uses, times_used, valid_from, valid_until, unlocks_hidden_tickets,
	active, created_at, updated_at`

func (r *VoucherRepository) scanVoucher(ctx context.Context, row *sql.Row) (*models.Voucher, error) {
	v := &models.Voucher{}
	err := row.Scan(
		&v.ID, &v.ConferenceID, &v.Code, &v.Type, &v.DiscountValue,
		&v.MaxUses, &v.TimesUsed, &v.ValidFrom, &v.ValidUntil,
		&v.UnlocksHiddenTickets, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrVoucherInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan voucher: %w", err)
	}

	if err := r.loadRestrictions(ctx, v); err != nil {
		return nil, err
	}

	return v, nil
}

func (r *VoucherRepository) loadRestrictions(ctx context.Context, v *models.Voucher) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticket_type_id FROM voucher_ticket_types WHERE voucher_id = $1`, v.ID)
	if err != nil {
		return fmt.Errorf("failed to load voucher ticket types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan voucher ticket type: %w", err)
		}
		v.TicketTypeIDs = append(v.TicketTypeIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	addonRows, err := r.db.QueryContext(ctx,
		`SELECT addon_id FROM voucher_addons WHERE voucher_id = $1`, v.ID)
	if err != nil {
		return fmt.Errorf("failed to load voucher add-ons: %w", err)
	}
	defer addonRows.Close()

	for addonRows.Next() {
		var id int64
		if err := addonRows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan voucher add-on: %w", err)
		}
		v.AddOnIDs = append(v.AddOnIDs, id)
	}

	return addonRows.Err()
}

// GetByID retrieves a voucher by ID
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`
	return r.scanVoucher(ctx, r.db.QueryRowContext(ctx, query, id))
}

// GetByCode retrieves a voucher by its conference-scoped code
func (r *VoucherRepository) GetByCode(ctx context.Context, conferenceID int64, code string) (*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE conference_id = $1 AND code = $2`
	return r.scanVoucher(ctx, r.db.QueryRowContext(ctx, query, conferenceID, code))
}

// ListByConference retrieves all vouchers for a conference
func (r *VoucherRepository) ListByConference(ctx context.Context, conferenceID int64) ([]*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE conference_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*models.Voucher
	for rows.Next() {
		v := &models.Voucher{}
		err := rows.Scan(
			&v.ID, &v.ConferenceID, &v.Code, &v.Type, &v.DiscountValue,
			&v.MaxUses, &v.TimesUsed, &v.ValidFrom, &v.ValidUntil,
			&v.UnlocksHiddenTickets, &v.Active, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, v := range vouchers {
		if err := r.loadRestrictions(ctx, v); err != nil {
			return nil, err
		}
	}

	return vouchers, nil
}

// ExistingCodes returns which of the given codes already exist for the
// conference
func (r *VoucherRepository) ExistingCodes(ctx context.Context, conferenceID int64, codes []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(codes) == 0 {
		return existing, nil
	}

	query := `SELECT code FROM vouchers WHERE conference_id = $1 AND code = ANY($2)`

	rows, err := r.db.QueryContext(ctx, query, conferenceID, pq.Array(codes))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan voucher code: %w", err)
		}
		existing[code] = true
	}

	return existing, rows.Err()
}

// Update updates a voucher's mutable fields
func (r *VoucherRepository) Update(ctx context.Context, v *models.Voucher) error {
	query := `
		UPDATE vouchers
		SET discount_value = $1, max_uses = $2, valid_from = $3, valid_until = $4,
			unlocks_hidden_tickets = $5, active = $6, updated_at = NOW()
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		v.DiscountValue, v.MaxUses, v.ValidFrom, v.ValidUntil,
		v.UnlocksHiddenTickets, v.Active, v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update voucher: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrVoucherInvalid
	}

	return nil
}

// DecrementUsage releases one use of a voucher, used when a pending order
// holding the voucher expires. Usage never goes below zero.
func (r *VoucherRepository) DecrementUsage(ctx context.Context, voucherID int64) error {
	query := `
		UPDATE vouchers
		SET times_used = times_used - 1, updated_at = NOW()
		WHERE id = $1 AND times_used > 0`

	if _, err := r.db.ExecContext(ctx, query, voucherID); err != nil {
		return fmt.Errorf("failed to decrement voucher usage: %w", err)
	}

	return nil
}
