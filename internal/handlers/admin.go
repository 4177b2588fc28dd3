package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/middleware"
	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/repositories"
	"conference-registration-platform/internal/services"
)

// AdminHandler serves the staff-only management endpoints
type AdminHandler struct {
	conferences  *repositories.ConferenceRepository
	catalog      *repositories.TicketTypeRepository
	vouchers     *repositories.VoucherRepository
	voucherSvc   *services.VoucherService
	payments     *services.PaymentService
	refunds      *services.RefundService
	orders       *repositories.OrderRepository
	checkout     *services.CheckoutService
	scheduleSync *services.ScheduleSyncService
	sponsorSync  *services.SponsorSyncService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	conferences *repositories.ConferenceRepository,
	catalog *repositories.TicketTypeRepository,
	vouchers *repositories.VoucherRepository,
	voucherSvc *services.VoucherService,
	payments *services.PaymentService,
	refunds *services.RefundService,
	orders *repositories.OrderRepository,
	checkout *services.CheckoutService,
	scheduleSync *services.ScheduleSyncService,
	sponsorSync *services.SponsorSyncService,
) *AdminHandler {
	return &AdminHandler{
		conferences:  conferences,
		catalog:      catalog,
		vouchers:     vouchers,
		voucherSvc:   voucherSvc,
		payments:     payments,
		refunds:      refunds,
		orders:       orders,
		checkout:     checkout,
		scheduleSync: scheduleSync,
		sponsorSync:  sponsorSync,
	}
}

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// ListConferences returns all conferences, including gateway configuration
// state
func (h *AdminHandler) ListConferences(w http.ResponseWriter, r *http.Request) {
	conferences, err := h.conferences.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, conferences)
}

// CreateConference creates a conference
func (h *AdminHandler) CreateConference(w http.ResponseWriter, r *http.Request) {
	var conf models.Conference
	if err := decodeJSON(r, &conf); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if conf.PendingOrderExpiryMins == 0 {
		conf.PendingOrderExpiryMins = 30
	}
	if err := conf.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.conferences.Create(r.Context(), &conf); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, conf)
}

// UpdateConference updates a conference's configuration
func (h *AdminHandler) UpdateConference(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	var conf models.Conference
	if err := decodeJSON(r, &conf); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	conf.ID = id
	if err := conf.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.conferences.Update(r.Context(), &conf); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, conf)
}

// CreateTicketType creates a ticket type for a conference
func (h *AdminHandler) CreateTicketType(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	var t models.TicketType
	if err := decodeJSON(r, &t); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	t.ConferenceID = id
	if err := t.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.catalog.CreateTicketType(r.Context(), &t); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// UpdateTicketType updates a ticket type
func (h *AdminHandler) UpdateTicketType(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "ticketTypeID")
	if !ok {
		respondError(w, models.ErrItemUnavailable)
		return
	}

	var t models.TicketType
	if err := decodeJSON(r, &t); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	t.ID = id
	if err := t.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.catalog.UpdateTicketType(r.Context(), &t); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// CreateAddOn creates an add-on for a conference
func (h *AdminHandler) CreateAddOn(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	var a models.AddOn
	if err := decodeJSON(r, &a); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	a.ConferenceID = id
	if err := a.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.catalog.CreateAddOn(r.Context(), &a); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, a)
}

// ListVouchers returns all vouchers for a conference
func (h *AdminHandler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	vouchers, err := h.vouchers.ListByConference(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, vouchers)
}

// CreateVoucher creates a single voucher
func (h *AdminHandler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	var v models.Voucher
	if err := decodeJSON(r, &v); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	v.ConferenceID = id
	v.Active = true

	if err := h.voucherSvc.Create(r.Context(), &v); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, v)
}

type voucherBatchRequest struct {
	Count                int                `json:"count"`
	Prefix               string             `json:"prefix"`
	Type                 models.VoucherType `json:"voucher_type"`
	DiscountValue        decimal.Decimal    `json:"discount_value"`
	MaxUses              int                `json:"max_uses"`
	UnlocksHiddenTickets bool               `json:"unlocks_hidden_tickets"`
	TicketTypeIDs        []int64            `json:"ticket_type_ids"`
	AddOnIDs             []int64            `json:"addon_ids"`
}

// GenerateVouchers generates a batch of vouchers with random codes
func (h *AdminHandler) GenerateVouchers(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	var req voucherBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.MaxUses == 0 {
		req.MaxUses = 1
	}

	vouchers, err := h.voucherSvc.GenerateBatch(r.Context(), services.BatchRequest{
		ConferenceID:         id,
		Count:                req.Count,
		Prefix:               req.Prefix,
		Type:                 req.Type,
		DiscountValue:        req.DiscountValue,
		MaxUses:              req.MaxUses,
		UnlocksHiddenTickets: req.UnlocksHiddenTickets,
		TicketTypeIDs:        req.TicketTypeIDs,
		AddOnIDs:             req.AddOnIDs,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, vouchers)
}

type manualPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// RecordManualPayment records a staff-collected payment against an order
func (h *AdminHandler) RecordManualPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		respondError(w, models.ErrOrderNotFound)
		return
	}

	var req manualPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	staffID := middleware.UserIDFromContext(r.Context())
	if err := h.payments.RecordManualPayment(r.Context(), orderID, req.Amount, req.Note, staffID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// CreateRefund refunds part or all of a paid order and returns the store
// credit issued for the refunded amount
func (h *AdminHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		respondError(w, models.ErrOrderNotFound)
		return
	}

	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	credit, err := h.refunds.CreateRefund(r.Context(), services.RefundRequest{
		OrderID:      orderID,
		Amount:       req.Amount,
		Reason:       req.Reason,
		RecordedByID: middleware.UserIDFromContext(r.Context()),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, credit)
}

// SearchOrders searches a conference's orders by reference or billing
// details
func (h *AdminHandler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.orders.Search(r.Context(), repositories.SearchFilters{
		ConferenceID: id,
		Status:       models.OrderStatus(r.URL.Query().Get("status")),
		Query:        r.URL.Query().Get("q"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

// GetStatistics returns order statistics for a conference
func (h *AdminHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	stats, err := h.orders.GetStatistics(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// ExpireOrders cancels pending orders with lapsed capacity holds
func (h *AdminHandler) ExpireOrders(w http.ResponseWriter, r *http.Request) {
	expired, err := h.checkout.ExpireStalePendingOrders(r.Context(), 500)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

type scheduleSyncRequest struct {
	EventSlug string `json:"event_slug"`
}

// SyncSchedule pulls the conference's schedule from the schedule source
func (h *AdminHandler) SyncSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	var req scheduleSyncRequest
	if err := decodeJSON(r, &req); err != nil || req.EventSlug == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "event_slug is required"})
		return
	}

	result, err := h.scheduleSync.Sync(r.Context(), id, req.EventSlug)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// SyncSponsors pulls the conference's sponsors from the sponsor directory
// and issues comp vouchers for sponsor allocations
func (h *AdminHandler) SyncSponsors(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "conferenceID")
	if !ok {
		respondError(w, models.ErrConferenceNotFound)
		return
	}

	result, err := h.sponsorSync.Sync(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
