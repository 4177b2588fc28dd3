package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conference-registration-platform/internal/models"
)

type memSchedule struct {
	rooms    map[int64]*models.Room
	speakers map[string]*models.Speaker
	talks    map[string]*models.Talk
	nextID   int64
}

func newMemSchedule() *memSchedule {
	return &memSchedule{
		rooms:    make(map[int64]*models.Room),
		speakers: make(map[string]*models.Speaker),
		talks:    make(map[string]*models.Talk),
	}
}

func (m *memSchedule) UpsertRoom(ctx context.Context, room *models.Room) error {
	if existing, ok := m.rooms[room.UpstreamID]; ok {
		room.ID = existing.ID
	} else {
		m.nextID++
		room.ID = m.nextID
	}
	cp := *room
	m.rooms[room.UpstreamID] = &cp
	return nil
}

func (m *memSchedule) UpsertSpeaker(ctx context.Context, s *models.Speaker) error {
	if existing, ok := m.speakers[s.Code]; ok {
		s.ID = existing.ID
	} else {
		m.nextID++
		s.ID = m.nextID
	}
	cp := *s
	m.speakers[s.Code] = &cp
	return nil
}

func (m *memSchedule) UpsertTalk(ctx context.Context, talk *models.Talk) error {
	if existing, ok := m.talks[talk.Code]; ok {
		talk.ID = existing.ID
	} else {
		m.nextID++
		talk.ID = m.nextID
	}
	cp := *talk
	m.talks[talk.Code] = &cp
	return nil
}

func (m *memSchedule) GetRoomByUpstreamID(ctx context.Context, conferenceID, upstreamID int64) (*models.Room, error) {
	room, ok := m.rooms[upstreamID]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

// newPretalxTestServer serves a two-page room list plus single-page speaker
// and talk lists, so the client's pagination gets exercised.
func newPretalxTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token tok_test" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/events/gocon-2026/rooms/" && r.URL.Query().Get("page") == "":
			fmt.Fprintf(w, `{"next":%q,"results":[{"id":11,"name":{"en":"Main Hall"},"capacity":400}]}`,
				srv.URL+"/api/events/gocon-2026/rooms/?page=2")
		case r.URL.Path == "/api/events/gocon-2026/rooms/":
			fmt.Fprint(w, `{"next":null,"results":[{"id":12,"name":{"de":"Nebenraum"},"capacity":80}]}`)
		case r.URL.Path == "/api/events/gocon-2026/speakers/":
			fmt.Fprint(w, `{"next":null,"results":[{"code":"SPKR1","name":"Jordan Doe","biography":"Gopher"}]}`)
		case r.URL.Path == "/api/events/gocon-2026/talks/":
			fmt.Fprint(w, `{"next":null,"results":[
				{"code":"TALK1","title":"Generics in Anger","state":"confirmed",
				 "track":{"name":{"en":"Language"}},
				 "speakers":[{"code":"SPKR1"}],
				 "slot":{"room_id":11,"start":"2026-09-10T09:00:00Z","end":"2026-09-10T09:45:00Z"}},
				{"code":"TALK2","title":"Hallway Track","state":"confirmed",
				 "track":{"name":{}},
				 "speakers":[],
				 "slot":{"room_id":99}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScheduleSync(t *testing.T) {
	srv := newPretalxTestServer(t)
	client := NewPretalxClient(srv.URL, "tok_test", 5*time.Second)
	store := newMemSchedule()
	sync := NewScheduleSyncService(client, store)

	result, err := sync.Sync(context.Background(), 1, "gocon-2026")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Rooms != 2 || result.Speakers != 1 || result.Talks != 2 {
		t.Errorf("result = %+v, want 2 rooms, 1 speaker, 2 talks", result)
	}

	main := store.rooms[11]
	if main == nil || main.Name != "Main Hall" || main.Capacity != 400 {
		t.Errorf("unexpected main room %+v", main)
	}
	// Non-English names fall back to whatever locale is present.
	side := store.rooms[12]
	if side == nil || side.Name != "Nebenraum" {
		t.Errorf("unexpected side room %+v", side)
	}

	talk := store.talks["TALK1"]
	if talk == nil {
		t.Fatal("TALK1 was not stored")
	}
	if talk.Track != "Language" || talk.State != "confirmed" {
		t.Errorf("unexpected talk %+v", talk)
	}
	if talk.RoomID == nil || *talk.RoomID != main.ID {
		t.Errorf("talk should resolve its room to the local id %d, got %v", main.ID, talk.RoomID)
	}
	if len(talk.SpeakerCodes) != 1 || talk.SpeakerCodes[0] != "SPKR1" {
		t.Errorf("speaker codes = %v", talk.SpeakerCodes)
	}
	if talk.StartsAt == nil || talk.StartsAt.UTC().Hour() != 9 {
		t.Errorf("start time = %v", talk.StartsAt)
	}

	// A talk referencing an unknown room keeps a nil room rather than failing.
	orphan := store.talks["TALK2"]
	if orphan == nil {
		t.Fatal("TALK2 was not stored")
	}
	if orphan.RoomID != nil {
		t.Errorf("unknown room should leave RoomID nil, got %v", orphan.RoomID)
	}
}

func TestScheduleSyncIsIdempotent(t *testing.T) {
	srv := newPretalxTestServer(t)
	client := NewPretalxClient(srv.URL, "tok_test", 5*time.Second)
	store := newMemSchedule()
	sync := NewScheduleSyncService(client, store)

	ctx := context.Background()
	if _, err := sync.Sync(ctx, 1, "gocon-2026"); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	firstID := store.talks["TALK1"].ID

	if _, err := sync.Sync(ctx, 1, "gocon-2026"); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(store.rooms) != 2 || len(store.speakers) != 1 || len(store.talks) != 2 {
		t.Errorf("rerun duplicated records: %d rooms, %d speakers, %d talks",
			len(store.rooms), len(store.speakers), len(store.talks))
	}
	if store.talks["TALK1"].ID != firstID {
		t.Errorf("rerun should keep the same local id")
	}
}

func TestPretalxClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	client := NewPretalxClient(srv.URL, "tok_bad", 5*time.Second)
	if _, err := client.FetchRooms(context.Background(), "gocon-2026"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestLocalized(t *testing.T) {
	if got := localized(map[string]string{"en": "Hall A", "de": "Saal A"}); got != "Hall A" {
		t.Errorf("got %q, want the English value", got)
	}
	if got := localized(map[string]string{"de": "Saal A"}); got != "Saal A" {
		t.Errorf("got %q, want the fallback value", got)
	}
	if got := localized(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
