package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/services"
)

// ScheduleReader provides read access to synced schedule data
type ScheduleReader interface {
	ListTalks(ctx context.Context, conferenceID int64) ([]*models.Talk, error)
	ListSpeakers(ctx context.Context, conferenceID int64) ([]*models.Speaker, error)
}

// PublicHandler serves the unauthenticated catalog endpoints
type PublicHandler struct {
	conferences services.ConferenceStore
	catalog     services.CatalogStore
	capacity    *services.CapacityService
	schedule    ScheduleReader
	sponsors    services.SponsorStore
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(conferences services.ConferenceStore, catalog services.CatalogStore, capacity *services.CapacityService, schedule ScheduleReader, sponsors services.SponsorStore) *PublicHandler {
	return &PublicHandler{
		conferences: conferences,
		catalog:     catalog,
		capacity:    capacity,
		schedule:    schedule,
		sponsors:    sponsors,
	}
}

func (h *PublicHandler) conference(r *http.Request) (*models.Conference, error) {
	return h.conferences.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
}

// GetConference returns a conference by slug
func (h *PublicHandler) GetConference(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conference(r)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, conf)
}

// ListTicketTypes returns the publicly purchasable ticket types for a
// conference. Hidden and inactive types are omitted; they only surface in a
// cart that has unlocked them.
func (h *PublicHandler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conference(r)
	if err != nil {
		respondError(w, err)
		return
	}

	types, err := h.catalog.ListTicketTypes(r.Context(), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	now := time.Now()
	visible := make([]*models.TicketType, 0, len(types))
	for _, t := range types {
		if !t.Hidden && t.IsOnSale(now) {
			visible = append(visible, t)
		}
	}

	respondJSON(w, http.StatusOK, visible)
}

// ListAddOns returns the purchasable add-ons for a conference
func (h *PublicHandler) ListAddOns(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conference(r)
	if err != nil {
		respondError(w, err)
		return
	}

	addons, err := h.catalog.ListAddOns(r.Context(), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	now := time.Now()
	visible := make([]*models.AddOn, 0, len(addons))
	for _, a := range addons {
		if a.IsOnSale(now) {
			visible = append(visible, a)
		}
	}

	respondJSON(w, http.StatusOK, visible)
}

// GetAvailability returns remaining venue capacity for a conference
func (h *PublicHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conference(r)
	if err != nil {
		respondError(w, err)
		return
	}

	avail, err := h.capacity.ConferenceAvailability(r.Context(), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, avail)
}

// ListTalks returns the synced talk schedule for a conference
func (h *PublicHandler) ListTalks(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conference(r)
	if err != nil {
		respondError(w, err)
		return
	}

	talks, err := h.schedule.ListTalks(r.Context(), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, talks)
}

// ListSpeakers returns the synced speakers for a conference
func (h *PublicHandler) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conference(r)
	if err != nil {
		respondError(w, err)
		return
	}

	speakers, err := h.schedule.ListSpeakers(r.Context(), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, speakers)
}

// ListSponsors returns the synced sponsors for a conference
func (h *PublicHandler) ListSponsors(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conference(r)
	if err != nil {
		respondError(w, err)
		return
	}

	sponsors, err := h.sponsors.ListByConference(r.Context(), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sponsors)
}
