package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"conference-registration-platform/internal/middleware"
	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/services"
)

// OrderHandler serves checkout and order endpoints for attendees
type OrderHandler struct {
	conferences services.ConferenceStore
	checkout    *services.CheckoutService
	orders      services.OrderStore
	payments    services.PaymentReader
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(conferences services.ConferenceStore, checkout *services.CheckoutService, orders services.OrderStore, payments services.PaymentReader) *OrderHandler {
	return &OrderHandler{
		conferences: conferences,
		checkout:    checkout,
		orders:      orders,
		payments:    payments,
	}
}

type checkoutRequest struct {
	BillingName  string `json:"billing_name"`
	BillingEmail string `json:"billing_email"`
}

// Checkout converts the user's open cart into a pending order
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conferences.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, err)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.checkout.Checkout(r.Context(), services.CheckoutRequest{
		UserID:       middleware.UserIDFromContext(r.Context()),
		ConferenceID: conf.ID,
		BillingName:  req.BillingName,
		BillingEmail: req.BillingEmail,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// ListOrders returns the user's orders for a conference
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	conf, err := h.conferences.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, err)
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()), conf.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

// GetOrder returns one of the user's orders with its payments
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.userOrder(r)
	if err != nil {
		respondError(w, err)
		return
	}

	payments, err := h.payments.ListByOrder(r.Context(), order.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order":    order,
		"payments": payments,
	})
}

// userOrder loads the order from the URL and verifies the requester owns it
func (h *OrderHandler) userOrder(r *http.Request) (*models.Order, error) {
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
