package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"conference-registration-platform/internal/middleware"
	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/services"
)

// CartHandler serves the authenticated cart endpoints
type CartHandler struct {
	conferences services.ConferenceStore
	carts       *services.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(conferences services.ConferenceStore, carts *services.CartService) *CartHandler {
	return &CartHandler{conferences: conferences, carts: carts}
}

type cartResponse struct {
	Cart    *models.Cart        `json:"cart"`
	Summary *models.CartSummary `json:"summary"`
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, cart *models.Cart) {
	summary, err := h.carts.Summarize(r.Context(), cart)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse{Cart: cart, Summary: summary})
}

func (h *CartHandler) conferenceID(r *http.Request) (int64, error) {
	conf, err := h.conferences.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		return 0, err
	}
	return conf.ID, nil
}

// GetCart returns the user's open cart with its priced summary
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	confID, err := h.conferenceID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	cart, err := h.carts.GetOrCreateCart(r.Context(), middleware.UserIDFromContext(r.Context()), confID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.respondCart(w, r, cart)
}

type addItemRequest struct {
	TicketTypeID int64 `json:"ticket_type_id,omitempty"`
	AddOnID      int64 `json:"addon_id,omitempty"`
	Quantity     int   `json:"quantity"`
}

// AddItem adds a ticket type or add-on to the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	confID, err := h.conferenceID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity <= 0 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	var cart *models.Cart
	switch {
	case req.TicketTypeID > 0 && req.AddOnID == 0:
		cart, err = h.carts.AddTicket(r.Context(), userID, confID, req.TicketTypeID, req.Quantity)
	case req.AddOnID > 0 && req.TicketTypeID == 0:
		cart, err = h.carts.AddAddOn(r.Context(), userID, confID, req.AddOnID, req.Quantity)
	default:
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of ticket_type_id or addon_id is required"})
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	h.respondCart(w, r, cart)
}

// RemoveItem removes a line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	confID, err := h.conferenceID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), middleware.UserIDFromContext(r.Context()), confID, itemID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.respondCart(w, r, cart)
}

type applyVoucherRequest struct {
	Code string `json:"code"`
}

// ApplyVoucher attaches a voucher code to the cart
func (h *CartHandler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	confID, err := h.conferenceID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req applyVoucherRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "voucher code is required"})
		return
	}

	cart, err := h.carts.ApplyVoucher(r.Context(), middleware.UserIDFromContext(r.Context()), confID, req.Code)
	if err != nil {
		respondError(w, err)
		return
	}

	h.respondCart(w, r, cart)
}

// RemoveVoucher detaches the voucher from the cart
func (h *CartHandler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	confID, err := h.conferenceID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	cart, err := h.carts.RemoveVoucher(r.Context(), middleware.UserIDFromContext(r.Context()), confID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.respondCart(w, r, cart)
}
