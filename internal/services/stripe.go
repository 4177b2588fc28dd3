package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"conference-registration-platform/internal/models"
)

// StripeGateway is a minimal client for the Stripe HTTP API covering the
// three calls the registration flow needs: customers, payment intents and
// refunds. Each conference gets its own client built from its own secret key.
type StripeGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewStripeGateway creates a new Stripe gateway client
func NewStripeGateway(secretKey, baseURL string, timeout time.Duration) *StripeGateway {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

// NewStripeGatewayFactory returns a factory binding the base URL and timeout
func NewStripeGatewayFactory(baseURL string, timeout time.Duration) GatewayFactory {
	return func(secretKey string) Gateway {
		return NewStripeGateway(secretKey, baseURL, timeout)
	}
}

type stripeCustomer struct {
	ID string `json:"id"`
}

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type stripeRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateCustomer creates a Stripe customer and returns its ID
func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)

	var customer stripeCustomer
	if err := g.post(ctx, "/v1/customers", form, "", &customer); err != nil {
		return "", err
	}

	return customer.ID, nil
}

// CreatePaymentIntent creates a payment intent for the given amount
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	if req.CustomerID != "" {
		form.Set("customer", req.CustomerID)
	}
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var intent stripeIntent
	if err := g.post(ctx, "/v1/payment_intents", form, req.IdempotencyKey, &intent); err != nil {
		return nil, err
	}

	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

// CreateRefund refunds part or all of a payment intent
func (g *StripeGateway) CreateRefund(ctx context.Context, intentID string, amountMinor int64, idempotencyKey string) (*GatewayRefund, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	if amountMinor > 0 {
		form.Set("amount", strconv.FormatInt(amountMinor, 10))
	}

	var refund stripeRefund
	if err := g.post(ctx, "/v1/refunds", form, idempotencyKey, &refund); err != nil {
		return nil, err
	}

	return &GatewayRefund{ID: refund.ID, Status: refund.Status}, nil
}

func (g *StripeGateway) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp stripeErrorResponse
		message := "unknown gateway error"
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		return &models.GatewayError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return nil
}
