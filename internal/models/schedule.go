package models

import "time"

// Room represents a venue room, synced from the schedule source.
type Room struct {
	ID           int64     `json:"id" db:"id"`
	ConferenceID int64     `json:"conference_id" db:"conference_id"`
	UpstreamID   int64     `json:"upstream_id" db:"upstream_id"`
	Name         string    `json:"name" db:"name"`
	Capacity     int       `json:"capacity" db:"capacity"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Speaker represents a talk speaker, synced from the schedule source and
// keyed by the upstream code for idempotent upserts.
type Speaker struct {
	ID           int64     `json:"id" db:"id"`
	ConferenceID int64     `json:"conference_id" db:"conference_id"`
	Code         string    `json:"code" db:"code"`
	Name         string    `json:"name" db:"name"`
	Biography    string    `json:"biography" db:"biography"`
	AvatarURL    string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Talk represents a scheduled talk, synced from the schedule source. Code is
// the upstream identifier and is unique per conference.
type Talk struct {
	ID           int64      `json:"id" db:"id"`
	ConferenceID int64      `json:"conference_id" db:"conference_id"`
	Code         string     `json:"code" db:"code"`
	Title        string     `json:"title" db:"title"`
	Abstract     string     `json:"abstract" db:"abstract"`
	Track        string     `json:"track" db:"track"`
	State        string     `json:"state" db:"state"`
	RoomID       *int64     `json:"room_id" db:"room_id"`
	StartsAt     *time.Time `json:"starts_at" db:"starts_at"`
	EndsAt       *time.Time `json:"ends_at" db:"ends_at"`
	SpeakerCodes []string   `json:"speaker_codes"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsConfirmed returns true for talks the schedule source has confirmed.
func (t *Talk) IsConfirmed() bool {
	return t.State == "confirmed"
}
