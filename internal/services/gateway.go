package services

import (
	"context"
	"strings"
)

// PaymentIntentRequest describes a payment to collect through the gateway.
// The idempotency key is the order reference, so retrying initiation for the
// same order reuses the intent instead of charging twice.
type PaymentIntentRequest struct {
	AmountMinor    int64
	Currency       string
	CustomerID     string
	IdempotencyKey string
	Description    string
	Metadata       map[string]string
}

// PaymentIntent is the gateway's handle for a payment in progress. The
// client secret goes to the browser; the intent ID is what webhooks carry.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// GatewayRefund is the gateway's record of a processed refund
type GatewayRefund struct {
	ID     string
	Status string
}

// Gateway abstracts the payment provider. Implementations return
// *models.GatewayError for failures the provider reported.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, intentID string, amountMinor int64, idempotencyKey string) (*GatewayRefund, error)
}

// GatewayFactory builds a gateway client for a conference's own secret key
type GatewayFactory func(secretKey string) Gateway

// IntentIDFromClientSecret extracts the intent ID from a client secret of
// the form "pi_xxx_secret_yyy"
func IntentIDFromClientSecret(clientSecret string) string {
	if idx := strings.Index(clientSecret, "_secret_"); idx >= 0 {
		return clientSecret[:idx]
	}
	return clientSecret
}
