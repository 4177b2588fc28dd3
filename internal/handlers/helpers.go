package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"conference-registration-platform/internal/models"
)

// respondJSON writes a JSON response with the given status
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

// respondError writes a JSON error response with the status mapped from the
// error type
func respondError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		respondJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrConferenceNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrCartNotFound),
		errors.Is(err, models.ErrCreditNotFound):
		return http.StatusNotFound

	case errors.Is(err, models.ErrDuplicateEntry):
		return http.StatusConflict

	case errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrInsufficientInventory),
		errors.Is(err, models.ErrVoucherExhausted),
		errors.Is(err, models.ErrCartExpired),
		errors.Is(err, models.ErrInvalidOrderState),
		errors.Is(err, models.ErrCreditUnavailable):
		return http.StatusConflict

	case errors.Is(err, models.ErrItemUnavailable),
		errors.Is(err, models.ErrLimitExceeded),
		errors.Is(err, models.ErrVoucherInvalid),
		errors.Is(err, models.ErrInvalidCount),
		errors.Is(err, models.ErrNonZeroTotal),
		errors.Is(err, models.ErrRefundExceedsBalance),
		errors.Is(err, models.ErrNoGatewayPayment),
		errors.Is(err, models.ErrCrossTenantMismatch),
		errors.Is(err, models.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	}

	var gatewayErr *models.GatewayError
	if errors.As(err, &gatewayErr) {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// decodeJSON decodes a request body, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
