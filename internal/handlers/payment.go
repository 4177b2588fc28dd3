package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"conference-registration-platform/internal/middleware"
	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/services"
	"conference-registration-platform/internal/utils"
)

// PaymentHandler serves payment initiation, credit application and the
// gateway webhook
type PaymentHandler struct {
	payments      *services.PaymentService
	orders        services.OrderStore
	credits       services.CreditStore
	conferences   services.ConferenceStore
	webhookSecret string
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService, orders services.OrderStore, credits services.CreditStore, conferences services.ConferenceStore, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		payments:      payments,
		orders:        orders,
		credits:       credits,
		conferences:   conferences,
		webhookSecret: webhookSecret,
	}
}

func (h *PaymentHandler) userOrder(r *http.Request) (*models.Order, error) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		return nil, models.ErrOrderNotFound
	}

	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != middleware.UserIDFromContext(r.Context()) {
		return nil, models.ErrOrderNotFound
	}

	return order, nil
}

// InitiatePayment creates a gateway payment intent for a pending order and
// returns the client secret
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	order, err := h.userOrder(r)
	if err != nil {
		respondError(w, err)
		return
	}

	clientSecret, err := h.payments.InitiateGatewayPayment(r.Context(), order.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"client_secret": clientSecret})
}

// SettleZeroTotal marks a fully discounted pending order as paid
func (h *PaymentHandler) SettleZeroTotal(w http.ResponseWriter, r *http.Request) {
	order, err := h.userOrder(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.payments.SettleZeroTotal(r.Context(), order.ID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

type applyCreditRequest struct {
	CreditID int64 `json:"credit_id"`
}

// ApplyCredit applies one of the user's store credits to a pending order
func (h *PaymentHandler) ApplyCredit(w http.ResponseWriter, r *http.Request) {
	order, err := h.userOrder(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req applyCreditRequest
	if err := decodeJSON(r, &req); err != nil || req.CreditID == 0 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "credit_id is required"})
		return
	}

	payment, err := h.payments.ApplyCredit(r.Context(), req.CreditID, order.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payment)
}

// ListCredits returns the user's store credits for a conference
func (h *PaymentHandler) ListCredits(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conferences.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, err)
		return
	}

	credits, err := h.credits.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, credits)
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// Webhook receives gateway events. The signature header carries a timestamp
// and an HMAC of "<timestamp>.<body>" under the webhook signing secret;
// requests that fail verification are rejected before any parsing.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	if !h.verifySignature(r.Header.Get("Stripe-Signature"), body) {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
		return
	}

	if err := h.payments.HandleGatewayEvent(r.Context(), event.Type, event.Data.Object.ID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

func (h *PaymentHandler) verifySignature(header string, body []byte) bool {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	payload := append([]byte(timestamp+"."), body...)
	return utils.VerifyHMAC(h.webhookSecret, payload, signature)
}
