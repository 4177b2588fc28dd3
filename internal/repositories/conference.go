package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"conference-registration-platform/internal/models"
)

// ConferenceRepository handles database operations for conferences
type ConferenceRepository struct {
	db *sql.DB
}

// NewConferenceRepository creates a new conference repository
func NewConferenceRepository(db *sql.DB) *ConferenceRepository {
	return &ConferenceRepository{db: db}
}

const conferenceColumns = `id, slug, name, currency, total_capacity,
	pending_order_expiry_minutes, stripe_secret_key, start_date, end_date,
	created_at, updated_at`

func scanConference(row *sql.Row) (*models.Conference, error) {
	conf := &models.Conference{}
	err := row.Scan(
		&conf.ID, &conf.Slug, &conf.Name, &conf.Currency, &conf.TotalCapacity,
		&conf.PendingOrderExpiryMins, &conf.StripeSecretKey,
		&conf.StartDate, &conf.EndDate, &conf.CreatedAt, &conf.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrConferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conference: %w", err)
	}
	return conf, nil
}

// Create creates a new conference
func (r *ConferenceRepository) Create(ctx context.Context, conf *models.Conference) error {
	query := `
		INSERT INTO conferences (slug, name, currency, total_capacity,
			pending_order_expiry_minutes, stripe_secret_key, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		conf.Slug, conf.Name, conf.Currency, conf.TotalCapacity,
		conf.PendingOrderExpiryMins, conf.StripeSecretKey,
		conf.StartDate, conf.EndDate,
	).Scan(&conf.ID, &conf.CreatedAt, &conf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conference: %w", err)
	}

	return nil
}

// GetByID retrieves a conference by ID
func (r *ConferenceRepository) GetByID(ctx context.Context, id int64) (*models.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE id = $1`
	return scanConference(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves a conference by its URL slug
func (r *ConferenceRepository) GetBySlug(ctx context.Context, slug string) (*models.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE slug = $1`
	return scanConference(r.db.QueryRowContext(ctx, query, slug))
}

// List retrieves all conferences ordered by start date
func (r *ConferenceRepository) List(ctx context.Context) ([]*models.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences ORDER BY start_date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conferences: %w", err)
	}
	defer rows.Close()

	var conferences []*models.Conference
	for rows.Next() {
		conf := &models.Conference{}
		err := rows.Scan(
			&conf.ID, &conf.Slug, &conf.Name, &conf.Currency, &conf.TotalCapacity,
			&conf.PendingOrderExpiryMins, &conf.StripeSecretKey,
			&conf.StartDate, &conf.EndDate, &conf.CreatedAt, &conf.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conference: %w", err)
		}
		conferences = append(conferences, conf)
	}

	return conferences, rows.Err()
}

// Update updates a conference's configuration
func (r *ConferenceRepository) Update(ctx context.Context, conf *models.Conference) error {
	query := `
		UPDATE conferences
		SET slug = $1, name = $2, currency = $3, total_capacity = $4,
			pending_order_expiry_minutes = $5, stripe_secret_key = $6,
			start_date = $7, end_date = $8, updated_at = NOW()
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		conf.Slug, conf.Name, conf.Currency, conf.TotalCapacity,
		conf.PendingOrderExpiryMins, conf.StripeSecretKey,
		conf.StartDate, conf.EndDate, conf.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conference: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrConferenceNotFound
	}

	return nil
}
