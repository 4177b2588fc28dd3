package services

import (
	"context"
	"log"

	"conference-registration-platform/internal/models"
)

// Notifier receives order lifecycle events. Notification happens after the
// enclosing transaction commits; a slow or failing notifier never blocks or
// rolls back a payment.
type Notifier interface {
	OrderPaid(ctx context.Context, order *models.Order)
	OrderRefunded(ctx context.Context, order *models.Order)
}

// LogNotifier writes notifications to the application log. It stands in for
// an email integration.
type LogNotifier struct{}

// NewLogNotifier creates a new log notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// OrderPaid logs a paid order
func (n *LogNotifier) OrderPaid(ctx context.Context, order *models.Order) {
	log.Printf("order %s paid: total %s for %s", order.Reference, order.Total.StringFixed(2), order.BillingEmail)
}

// OrderRefunded logs a refunded order
func (n *LogNotifier) OrderRefunded(ctx context.Context, order *models.Order) {
	log.Printf("order %s refunded", order.Reference)
}
