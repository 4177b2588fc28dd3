package services

import (
	"context"
	"fmt"
	"sync"

	"conference-registration-platform/internal/models"
)

// MockGateway is an in-memory payment gateway for development and tests. It
// accepts every payment and refund, remembers what it created, and can be
// told to fail the next call.
type MockGateway struct {
	mu            sync.Mutex
	nextCustomer  int
	nextIntent    int
	nextRefund    int
	failNext      bool
	intentsByKey  map[string]*PaymentIntent
	refundsByKey  map[string]*GatewayRefund
	refundTotals  map[string]int64
	CreatedEmails []string
}

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{
		intentsByKey: make(map[string]*PaymentIntent),
		refundsByKey: make(map[string]*GatewayRefund),
		refundTotals: make(map[string]int64),
	}
}

// FailNext makes the next gateway call return a gateway error
func (g *MockGateway) FailNext() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = true
}

func (g *MockGateway) checkFail() error {
	if g.failNext {
		g.failNext = false
		return &models.GatewayError{StatusCode: 402, Message: "mock gateway declined"}
	}
	return nil
}

// CreateCustomer creates a mock customer
func (g *MockGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkFail(); err != nil {
		return "", err
	}

	g.nextCustomer++
	g.CreatedEmails = append(g.CreatedEmails, email)
	return fmt.Sprintf("cus_mock_%d", g.nextCustomer), nil
}

// CreatePaymentIntent creates a mock payment intent. Requests with the same
// idempotency key return the same intent.
func (g *MockGateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkFail(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if intent, ok := g.intentsByKey[req.IdempotencyKey]; ok {
			return intent, nil
		}
	}

	g.nextIntent++
	id := fmt.Sprintf("pi_mock_%d", g.nextIntent)
	intent := &PaymentIntent{
		ID:           id,
		ClientSecret: fmt.Sprintf("%s_secret_%d", id, g.nextIntent),
		Status:       "requires_payment_method",
	}
	if req.IdempotencyKey != "" {
		g.intentsByKey[req.IdempotencyKey] = intent
	}

	return intent, nil
}

// CreateRefund refunds a mock payment intent. Repeating an idempotency key
// returns the original refund without double counting.
func (g *MockGateway) CreateRefund(ctx context.Context, intentID string, amountMinor int64, idempotencyKey string) (*GatewayRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkFail(); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if refund, ok := g.refundsByKey[idempotencyKey]; ok {
			return refund, nil
		}
	}

	g.nextRefund++
	g.refundTotals[intentID] += amountMinor
	refund := &GatewayRefund{
		ID:     fmt.Sprintf("re_mock_%d", g.nextRefund),
		Status: "succeeded",
	}
	if idempotencyKey != "" {
		g.refundsByKey[idempotencyKey] = refund
	}
	return refund, nil
}

// RefundedMinor returns the total minor units refunded against an intent
func (g *MockGateway) RefundedMinor(intentID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refundTotals[intentID]
}
