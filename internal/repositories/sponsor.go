package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"conference-registration-platform/internal/models"
)

// SponsorRepository handles database operations for sponsors
type SponsorRepository struct {
	db *sql.DB
}

// NewSponsorRepository creates a new sponsor repository
func NewSponsorRepository(db *sql.DB) *SponsorRepository {
	return &SponsorRepository{db: db}
}

// Upsert inserts or updates a sponsor keyed by its upstream ID. The returned
// bool is true when a new row was created.
func (r *SponsorRepository) Upsert(ctx context.Context, s *models.Sponsor) (bool, error) {
	query := `
		INSERT INTO sponsors (conference_id, upstream_id, slug, name, level,
			url, logo_url, comp_ticket_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (conference_id, upstream_id)
		DO UPDATE SET slug = EXCLUDED.slug, name = EXCLUDED.name,
			level = EXCLUDED.level, url = EXCLUDED.url,
			logo_url = EXCLUDED.logo_url,
			comp_ticket_count = EXCLUDED.comp_ticket_count,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (created_at = updated_at)`

	var created bool
	err := r.db.QueryRowContext(ctx, query,
		s.ConferenceID, s.UpstreamID, s.Slug, s.Name, s.Level,
		s.URL, s.LogoURL, s.CompTicketCount,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert sponsor: %w", err)
	}

	return created, nil
}

// GetBySlug retrieves a sponsor by its conference-scoped slug
func (r *SponsorRepository) GetBySlug(ctx context.Context, conferenceID int64, slug string) (*models.Sponsor, error) {
	query := `
		SELECT id, conference_id, upstream_id, slug, name, level, url,
			logo_url, comp_ticket_count, created_at, updated_at
		FROM sponsors
		WHERE conference_id = $1 AND slug = $2`

	s := &models.Sponsor{}
	err := r.db.QueryRowContext(ctx, query, conferenceID, slug).Scan(
		&s.ID, &s.ConferenceID, &s.UpstreamID, &s.Slug, &s.Name, &s.Level,
		&s.URL, &s.LogoURL, &s.CompTicketCount, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsor: %w", err)
	}

	return s, nil
}

// ListByConference retrieves a conference's sponsors ordered by level and name
func (r *SponsorRepository) ListByConference(ctx context.Context, conferenceID int64) ([]*models.Sponsor, error) {
	query := `
		SELECT id, conference_id, upstream_id, slug, name, level, url,
			logo_url, comp_ticket_count, created_at, updated_at
		FROM sponsors
		WHERE conference_id = $1
		ORDER BY level ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sponsors: %w", err)
	}
	defer rows.Close()

	var sponsors []*models.Sponsor
	for rows.Next() {
		s := &models.Sponsor{}
		err := rows.Scan(
			&s.ID, &s.ConferenceID, &s.UpstreamID, &s.Slug, &s.Name, &s.Level,
			&s.URL, &s.LogoURL, &s.CompTicketCount, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sponsor: %w", err)
		}
		sponsors = append(sponsors, s)
	}

	return sponsors, rows.Err()
}
