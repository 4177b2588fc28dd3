package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"conference-registration-platform/internal/models"
)

// PretalxClient is a read-only client for the Pretalx API, used to pull
// rooms, speakers and talks into the local schedule tables.
type PretalxClient struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// NewPretalxClient creates a new Pretalx client
func NewPretalxClient(baseURL, apiToken string, timeout time.Duration) *PretalxClient {
	return &PretalxClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		client:   &http.Client{Timeout: timeout},
	}
}

// PretalxRoom is a room as the Pretalx API returns it
type PretalxRoom struct {
	ID       int64             `json:"id"`
	Name     map[string]string `json:"name"`
	Capacity int               `json:"capacity"`
}

// PretalxSpeaker is a speaker as the Pretalx API returns it
type PretalxSpeaker struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Biography string `json:"biography"`
	Avatar    string `json:"avatar"`
}

// PretalxTalk is a talk as the Pretalx API returns it
type PretalxTalk struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Track    struct {
		Name map[string]string `json:"name"`
	} `json:"track"`
	State    string `json:"state"`
	Speakers []struct {
		Code string `json:"code"`
	} `json:"speakers"`
	Slot struct {
		RoomID int64      `json:"room_id"`
		Start  *time.Time `json:"start"`
		End    *time.Time `json:"end"`
	} `json:"slot"`
}

type pretalxPage struct {
	Next    string          `json:"next"`
	Results json.RawMessage `json:"results"`
}

// FetchRooms retrieves all rooms for an event, following pagination
func (c *PretalxClient) FetchRooms(ctx context.Context, eventSlug string) ([]PretalxRoom, error) {
	var rooms []PretalxRoom
	err := c.fetchAll(ctx, fmt.Sprintf("%s/api/events/%s/rooms/", c.baseURL, eventSlug), func(results json.RawMessage) error {
		var page []PretalxRoom
		if err := json.Unmarshal(results, &page); err != nil {
			return err
		}
		rooms = append(rooms, page...)
		return nil
	})
	return rooms, err
}

// FetchSpeakers retrieves all speakers for an event, following pagination
func (c *PretalxClient) FetchSpeakers(ctx context.Context, eventSlug string) ([]PretalxSpeaker, error) {
	var speakers []PretalxSpeaker
	err := c.fetchAll(ctx, fmt.Sprintf("%s/api/events/%s/speakers/", c.baseURL, eventSlug), func(results json.RawMessage) error {
		var page []PretalxSpeaker
		if err := json.Unmarshal(results, &page); err != nil {
			return err
		}
		speakers = append(speakers, page...)
		return nil
	})
	return speakers, err
}

// FetchTalks retrieves all talks for an event, following pagination
func (c *PretalxClient) FetchTalks(ctx context.Context, eventSlug string) ([]PretalxTalk, error) {
	var talks []PretalxTalk
	err := c.fetchAll(ctx, fmt.Sprintf("%s/api/events/%s/talks/", c.baseURL, eventSlug), func(results json.RawMessage) error {
		var page []PretalxTalk
		if err := json.Unmarshal(results, &page); err != nil {
			return err
		}
		talks = append(talks, page...)
		return nil
	})
	return talks, err
}

func (c *PretalxClient) fetchAll(ctx context.Context, url string, collect func(json.RawMessage) error) error {
	for url != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create schedule request: %w", err)
		}
		if c.apiToken != "" {
			req.Header.Set("Authorization", "Token "+c.apiToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("schedule request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read schedule response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("schedule source returned status %d", resp.StatusCode)
		}

		var page pretalxPage
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("failed to decode schedule response: %w", err)
		}

		if err := collect(page.Results); err != nil {
			return fmt.Errorf("failed to decode schedule results: %w", err)
		}

		url = page.Next
	}

	return nil
}

// localized picks the English value from a localized Pretalx field, falling
// back to any value present
func localized(values map[string]string) string {
	if v, ok := values["en"]; ok {
		return v
	}
	for _, v := range values {
		return v
	}
	return ""
}

// ScheduleSyncService mirrors a conference's Pretalx schedule into the local
// rooms, speakers and talks tables. Sync is idempotent: records are keyed by
// their upstream identifiers and upserted.
type ScheduleSyncService struct {
	client   *PretalxClient
	schedule ScheduleStore
}

// NewScheduleSyncService creates a new schedule sync service
func NewScheduleSyncService(client *PretalxClient, schedule ScheduleStore) *ScheduleSyncService {
	return &ScheduleSyncService{client: client, schedule: schedule}
}

// SyncResult summarizes one sync run
type SyncResult struct {
	Rooms    int `json:"rooms"`
	Speakers int `json:"speakers"`
	Talks    int `json:"talks"`
}

// Sync pulls the event's rooms, speakers and talks and upserts them. Rooms
// and speakers go first so talks can resolve their references.
func (s *ScheduleSyncService) Sync(ctx context.Context, conferenceID int64, eventSlug string) (*SyncResult, error) {
	result := &SyncResult{}

	rooms, err := s.client.FetchRooms(ctx, eventSlug)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		room := &models.Room{
			ConferenceID: conferenceID,
			UpstreamID:   r.ID,
			Name:         localized(r.Name),
			Capacity:     r.Capacity,
		}
		if err := s.schedule.UpsertRoom(ctx, room); err != nil {
			return nil, err
		}
		result.Rooms++
	}

	speakers, err := s.client.FetchSpeakers(ctx, eventSlug)
	if err != nil {
		return nil, err
	}
	for _, sp := range speakers {
		speaker := &models.Speaker{
			ConferenceID: conferenceID,
			Code:         sp.Code,
			Name:         sp.Name,
			Biography:    sp.Biography,
			AvatarURL:    sp.Avatar,
		}
		if err := s.schedule.UpsertSpeaker(ctx, speaker); err != nil {
			return nil, err
		}
		result.Speakers++
	}

	talks, err := s.client.FetchTalks(ctx, eventSlug)
	if err != nil {
		return nil, err
	}
	for _, t := range talks {
		talk := &models.Talk{
			ConferenceID: conferenceID,
			Code:         t.Code,
			Title:        t.Title,
			Abstract:     t.Abstract,
			Track:        localized(t.Track.Name),
			State:        t.State,
			StartsAt:     t.Slot.Start,
			EndsAt:       t.Slot.End,
		}
		for _, sp := range t.Speakers {
			talk.SpeakerCodes = append(talk.SpeakerCodes, sp.Code)
		}

		if t.Slot.RoomID != 0 {
			room, err := s.schedule.GetRoomByUpstreamID(ctx, conferenceID, t.Slot.RoomID)
			if err != nil {
				return nil, err
			}
			if room != nil {
				talk.RoomID = &room.ID
			} else {
				log.Printf("talk %s references unknown room %d", t.Code, t.Slot.RoomID)
			}
		}

		if err := s.schedule.UpsertTalk(ctx, talk); err != nil {
			return nil, err
		}
		result.Talks++
	}

	return result, nil
}
