package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"conference-registration-platform/internal/models"
)

// ScheduleRepository handles database operations for synced schedule data
type ScheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// UpsertRoom inserts or updates a room keyed by its upstream ID
func (r *ScheduleRepository) UpsertRoom(ctx context.Context, room *models.Room) error {
	query := `
		INSERT INTO rooms (conference_id, upstream_id, name, capacity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (conference_id, upstream_id)
		DO UPDATE SET name = EXCLUDED.name, capacity = EXCLUDED.capacity, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		room.ConferenceID, room.UpstreamID, room.Name, room.Capacity,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}

	return nil
}

// UpsertSpeaker inserts or updates a speaker keyed by its upstream code
func (r *ScheduleRepository) UpsertSpeaker(ctx context.Context, s *models.Speaker) error {
	query := `
		INSERT INTO speakers (conference_id, code, name, biography, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (conference_id, code)
		DO UPDATE SET name = EXCLUDED.name, biography = EXCLUDED.biography,
			avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.ConferenceID, s.Code, s.Name, s.Biography, s.AvatarURL,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert speaker: %w", err)
	}

	return nil
}

// UpsertTalk inserts or updates a talk keyed by its upstream code and
// replaces its speaker links
func (r *ScheduleRepository) UpsertTalk(ctx context.Context, talk *models.Talk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO talks (conference_id, code, title, abstract, track, state,
			room_id, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (conference_id, code)
		DO UPDATE SET title = EXCLUDED.title, abstract = EXCLUDED.abstract,
			track = EXCLUDED.track, state = EXCLUDED.state,
			room_id = EXCLUDED.room_id, starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		talk.ConferenceID, talk.Code, talk.Title, talk.Abstract, talk.Track,
		talk.State, talk.RoomID, talk.StartsAt, talk.EndsAt,
	).Scan(&talk.ID, &talk.CreatedAt, &talk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert talk: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM talk_speakers WHERE talk_id = $1`, talk.ID); err != nil {
		return fmt.Errorf("failed to clear talk speakers: %w", err)
	}

	for _, code := range talk.SpeakerCodes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO talk_speakers (talk_id, speaker_id)
			SELECT $1, id FROM speakers WHERE conference_id = $2 AND code = $3`,
			talk.ID, talk.ConferenceID, code,
		)
		if err != nil {
			return fmt.Errorf("failed to link talk speaker: %w", err)
		}
	}

	return tx.Commit()
}

// GetRoomByUpstreamID retrieves a room by its upstream ID
func (r *ScheduleRepository) GetRoomByUpstreamID(ctx context.Context, conferenceID, upstreamID int64) (*models.Room, error) {
	query := `
		SELECT id, conference_id, upstream_id, name, capacity, created_at, updated_at
		FROM rooms
		WHERE conference_id = $1 AND upstream_id = $2`

	room := &models.Room{}
	err := r.db.QueryRowContext(ctx, query, conferenceID, upstreamID).Scan(
		&room.ID, &room.ConferenceID, &room.UpstreamID, &room.Name,
		&room.Capacity, &room.CreatedAt, &room.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// ListTalks retrieves a conference's talks ordered by start time, including
// speaker codes
func (r *ScheduleRepository) ListTalks(ctx context.Context, conferenceID int64) ([]*models.Talk, error) {
	query := `
		SELECT id, conference_id, code, title, abstract, track, state,
			room_id, starts_at, ends_at, created_at, updated_at
		FROM talks
		WHERE conference_id = $1
		ORDER BY starts_at ASC NULLS LAST, id ASC`

	rows, err := r.db.QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list talks: %w", err)
	}
	defer rows.Close()

	var talks []*models.Talk
	for rows.Next() {
		t := &models.Talk{}
		err := rows.Scan(
			&t.ID, &t.ConferenceID, &t.Code, &t.Title, &t.Abstract, &t.Track,
			&t.State, &t.RoomID, &t.StartsAt, &t.EndsAt, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan talk: %w", err)
		}
		talks = append(talks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range talks {
		codeRows, err := r.db.QueryContext(ctx, `
			SELECT s.code FROM talk_speakers ts
			JOIN speakers s ON s.id = ts.speaker_id
			WHERE ts.talk_id = $1
			ORDER BY s.code`, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load talk speakers: %w", err)
		}
		for codeRows.Next() {
			var code string
			if err := codeRows.Scan(&code); err != nil {
				codeRows.Close()
				return nil, fmt.Errorf("failed to scan speaker code: %w", err)
			}
			t.SpeakerCodes = append(t.SpeakerCodes, code)
		}
		if err := codeRows.Err(); err != nil {
			codeRows.Close()
			return nil, err
		}
		codeRows.Close()
	}

	return talks, nil
}

// ListSpeakers retrieves a conference's speakers ordered by name
func (r *ScheduleRepository) ListSpeakers(ctx context.Context, conferenceID int64) ([]*models.Speaker, error) {
	query := `
		SELECT id, conference_id, code, name, biography, avatar_url, created_at, updated_at
		FROM speakers
		WHERE conference_id = $1
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list speakers: %w", err)
	}
	defer rows.Close()

	var speakers []*models.Speaker
	for rows.Next() {
		s := &models.Speaker{}
		err := rows.Scan(
			&s.ID, &s.ConferenceID, &s.Code, &s.Name, &s.Biography,
			&s.AvatarURL, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan speaker: %w", err)
		}
		speakers = append(speakers, s)
	}

	return speakers, rows.Err()
}
