package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"conference-registration-platform/internal/models"
)

// TicketTypeRepository handles database operations for ticket types and
// add-ons
type TicketTypeRepository struct {
	db *sql.DB
}

// NewTicketTypeRepository creates a new ticket type repository
func NewTicketTypeRepository(db *sql.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

// CreateTicketType creates a new ticket type
func (r *TicketTypeRepository) CreateTicketType(ctx context.Context, t *models.TicketType) error {
	query := `
		INSERT INTO ticket_types (conference_id, name, description, price,
			total_quantity, limit_per_user, active, hidden, available_from, available_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ConferenceID, t.Name, t.Description, t.Price,
		t.TotalQuantity, t.LimitPerUser, t.Active, t.Hidden,
		t.AvailableFrom, t.AvailableUntil,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ticket type: %w", err)
	}

	return nil
}

// GetTicketType retrieves a ticket type by ID
func (r *TicketTypeRepository) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	query := `
		SELECT id, conference_id, name, description, price, total_quantity,
			limit_per_user, active, hidden, available_from, available_until,
			created_at, updated_at
		FROM ticket_types
		WHERE id = $1`

	t := &models.TicketType{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.ConferenceID, &t.Name, &t.Description, &t.Price,
		&t.TotalQuantity, &t.LimitPerUser, &t.Active, &t.Hidden,
		&t.AvailableFrom, &t.AvailableUntil, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrItemUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	return t, nil
}

// ListTicketTypes retrieves all ticket types for a conference. Hidden types
// are included; callers decide visibility.
func (r *TicketTypeRepository) ListTicketTypes(ctx context.Context, conferenceID int64) ([]*models.TicketType, error) {
	query := `
		SELECT id, conference_id, name, description, price, total_quantity,
			limit_per_user, active, hidden, available_from, available_until,
			created_at, updated_at
		FROM ticket_types
		WHERE conference_id = $1
		ORDER BY price ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var types []*models.TicketType
	for rows.Next() {
		t := &models.TicketType{}
		err := rows.Scan(
			&t.ID, &t.ConferenceID, &t.Name, &t.Description, &t.Price,
			&t.TotalQuantity, &t.LimitPerUser, &t.Active, &t.Hidden,
			&t.AvailableFrom, &t.AvailableUntil, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		types = append(types, t)
	}

	return types, rows.Err()
}

// UpdateTicketType updates a ticket type
func (r *TicketTypeRepository) UpdateTicketType(ctx context.Context, t *models.TicketType) error {
	query := `
		UPDATE ticket_types
		SET name = $1, description = $2, price = $3, total_quantity = $4,
			limit_per_user = $5, active = $6, hidden = $7,
			available_from = $8, available_until = $9, updated_at = NOW()
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.Price, t.TotalQuantity,
		t.LimitPerUser, t.Active, t.Hidden,
		t.AvailableFrom, t.AvailableUntil, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket type: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrItemUnavailable
	}

	return nil
}

// CreateAddOn creates a new add-on with its required ticket type links
func (r *TicketTypeRepository) CreateAddOn(ctx context.Context, a *models.AddOn) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO addons (conference_id, name, description, price,
			total_quantity, limit_per_user, active, available_from, available_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		a.ConferenceID, a.Name, a.Description, a.Price,
		a.TotalQuantity, a.LimitPerUser, a.Active,
		a.AvailableFrom, a.AvailableUntil,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create add-on: %w", err)
	}

	for _, ticketTypeID := range a.RequiredTicketTypeIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO addon_required_ticket_types (addon_id, ticket_type_id) VALUES ($1, $2)`,
			a.ID, ticketTypeID,
		)
		if err != nil {
			return fmt.Errorf("failed to link required ticket type: %w", err)
		}
	}

	return tx.Commit()
}

// GetAddOn retrieves an add-on by ID, including its required ticket types
func (r *TicketTypeRepository) GetAddOn(ctx context.Context, id int64) (*models.AddOn, error) {
	query := `
		SELECT id, conference_id, name, description, price, total_quantity,
			limit_per_user, active, available_from, available_until,
			created_at, updated_at
		FROM addons
		WHERE id = $1`

	a := &models.AddOn{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.ConferenceID, &a.Name, &a.Description, &a.Price,
		&a.TotalQuantity, &a.LimitPerUser, &a.Active,
		&a.AvailableFrom, &a.AvailableUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrItemUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get add-on: %w", err)
	}

	a.RequiredTicketTypeIDs, err = r.requiredTicketTypeIDs(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// ListAddOns retrieves all add-ons for a conference, including required
// ticket type links
func (r *TicketTypeRepository) ListAddOns(ctx context.Context, conferenceID int64) ([]*models.AddOn, error) {
	query := `
		SELECT id, conference_id, name, description, price, total_quantity,
			limit_per_user, active, available_from, available_until,
			created_at, updated_at
		FROM addons
		WHERE conference_id = $1
		ORDER BY price ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list add-ons: %w", err)
	}
	defer rows.Close()

	var addons []*models.AddOn
	for rows.Next() {
		a := &models.AddOn{}
		err := rows.Scan(
			&a.ID, &a.ConferenceID, &a.Name, &a.Description, &a.Price,
			&a.TotalQuantity, &a.LimitPerUser, &a.Active,
			&a.AvailableFrom, &a.AvailableUntil, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan add-on: %w", err)
		}
		addons = append(addons, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range addons {
		a.RequiredTicketTypeIDs, err = r.requiredTicketTypeIDs(ctx, a.ID)
		if err != nil {
			return nil, err
		}
	}

	return addons, nil
}

func (r *TicketTypeRepository) requiredTicketTypeIDs(ctx context.Context, addonID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticket_type_id FROM addon_required_ticket_types WHERE addon_id = $1`,
		addonID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get required ticket types: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan required ticket type: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
