package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/repositories"
)

// PaymentService settles orders: through the gateway, as zero-total comps,
// as manual staff-recorded payments, or by applying store credit. Every
// mutation runs under the order's row lock, and gateway calls happen inside
// that lock so a gateway failure rolls the whole attempt back.
type PaymentService struct {
	locker      PaymentLocker
	payments    PaymentReader
	orders      OrderStore
	conferences ConferenceStore
	customers   CustomerStore
	users       UserStore
	gatewayFor  GatewayFactory
	notifier    Notifier
}

// NewPaymentService creates a new payment service
func NewPaymentService(locker PaymentLocker, payments PaymentReader, orders OrderStore, conferences ConferenceStore, customers CustomerStore, users UserStore, gatewayFor GatewayFactory, notifier Notifier) *PaymentService {
	return &PaymentService{
		locker:      locker,
		payments:    payments,
		orders:      orders,
		conferences: conferences,
		customers:   customers,
		users:       users,
		gatewayFor:  gatewayFor,
		notifier:    notifier,
	}
}

func (s *PaymentService) gateway(ctx context.Context, conferenceID int64) (Gateway, *models.Conference, error) {
	conf, err := s.conferences.GetByID(ctx, conferenceID)
	if err != nil {
		return nil, nil, err
	}
	if conf.StripeSecretKey == "" {
		return nil, nil, fmt.Errorf("conference %s has no gateway credentials", conf.Slug)
	}
	return s.gatewayFor(conf.StripeSecretKey), conf, nil
}

// ensureCustomer returns the user's gateway customer ID for the conference,
// creating one on first use
func (s *PaymentService) ensureCustomer(ctx context.Context, gw Gateway, userID, conferenceID int64) (string, error) {
	customerID, err := s.customers.Get(ctx, userID, conferenceID)
	if err != nil {
		return "", err
	}
	if customerID != "" {
		return customerID, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID, err = gw.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", err
	}

	err = s.customers.Save(ctx, &models.GatewayCustomer{
		UserID:       userID,
		ConferenceID: conferenceID,
		CustomerID:   customerID,
	})
	if err != nil {
		return "", err
	}

	return customerID, nil
}

// InitiateGatewayPayment creates a payment intent for a pending order and
// returns the client secret for the browser. The order reference doubles as
// the gateway idempotency key, so calling this twice returns the same intent
// instead of charging twice.
func (s *PaymentService) InitiateGatewayPayment(ctx context.Context, orderID int64) (string, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	gw, conf, err := s.gateway(ctx, order.ConferenceID)
	if err != nil {
		return "", err
	}

	minor, err := ToMinorUnits(order.Total, conf.Currency)
	if err != nil {
		return "", err
	}

	customerID, err := s.ensureCustomer(ctx, gw, order.UserID, order.ConferenceID)
	if err != nil {
		return "", err
	}

	var clientSecret string
	err = s.locker.WithOrderLock(ctx, orderID, func(tx repositories.OrderTx) error {
		locked, err := tx.Order(ctx)
		if err != nil {
			return err
		}
		if !locked.IsPending() {
			return models.ErrInvalidOrderState
		}
		if locked.Total.IsZero() {
			return models.ErrInvalidOrderState
		}

		intent, err := gw.CreatePaymentIntent(ctx, PaymentIntentRequest{
			AmountMinor:    minor,
			Currency:       conf.Currency,
			CustomerID:     customerID,
			IdempotencyKey: locked.Reference,
			Description:    fmt.Sprintf("Registration %s", locked.Reference),
			Metadata:       map[string]string{"order_reference": locked.Reference},
		})
		if err != nil {
			return err
		}
		clientSecret = intent.ClientSecret

		payments, err := tx.Payments(ctx)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.IntentID == intent.ID {
				// Retried initiation; the intent already has a row.
				return nil
			}
		}

		return tx.InsertPayment(ctx, &models.Payment{
			Method:   models.PaymentStripe,
			Status:   models.PaymentPending,
			Amount:   locked.Total,
			IntentID: intent.ID,
		})
	})
	if err != nil {
		return "", err
	}

	return clientSecret, nil
}

// SettleZeroTotal marks a fully discounted pending order as paid with a comp
// payment record. Returns models.ErrNonZeroTotal when the order still owes
// money.
func (s *PaymentService) SettleZeroTotal(ctx context.Context, orderID int64) error {
	var paid *models.Order
	err := s.locker.WithOrderLock(ctx, orderID, func(tx repositories.OrderTx) error {
		order, err := tx.Order(ctx)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return models.ErrInvalidOrderState
		}
		if !order.Total.IsZero() {
			return models.ErrNonZeroTotal
		}

		err = tx.InsertPayment(ctx, &models.Payment{
			Method: models.PaymentComp,
			Status: models.PaymentSucceeded,
			Amount: decimal.Zero,
		})
		if err != nil {
			return err
		}

		if err := tx.SetOrderStatus(ctx, models.OrderPaid, true); err != nil {
			return err
		}

		order.Status = models.OrderPaid
		paid = order
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.OrderPaid(ctx, paid)
	return nil
}

// RecordManualPayment records a staff-collected payment (bank transfer,
// on-site cash) against a pending order. The order transitions to paid once
// its succeeded payments cover the total, so installments are allowed.
func (s *PaymentService) RecordManualPayment(ctx context.Context, orderID int64, amount decimal.Decimal, note string, recordedByID int64) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.ErrInvalidAmount
	}

	var paid *models.Order
	err := s.locker.WithOrderLock(ctx, orderID, func(tx repositories.OrderTx) error {
		order, err := tx.Order(ctx)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return models.ErrInvalidOrderState
		}

		payments, err := tx.Payments(ctx)
		if err != nil {
			return err
		}

		err = tx.InsertPayment(ctx, &models.Payment{
			Method:       models.PaymentManual,
			Status:       models.PaymentSucceeded,
			Amount:       amount,
			Note:         note,
			RecordedByID: &recordedByID,
		})
		if err != nil {
			return err
		}

		covered := models.SucceededTotal(payments).Add(amount)
		if covered.GreaterThanOrEqual(order.Total) {
			if err := tx.SetOrderStatus(ctx, models.OrderPaid, true); err != nil {
				return err
			}
			order.Status = models.OrderPaid
			paid = order
		}

		return nil
	})
	if err != nil {
		return err
	}

	if paid != nil {
		s.notifier.OrderPaid(ctx, paid)
	}
	return nil
}

// ApplyCredit applies a store credit toward a pending order, up to the
// smaller of the credit's balance and the order's outstanding amount. The
// credit and order must belong to the same user and conference.
func (s *PaymentService) ApplyCredit(ctx context.Context, creditID, orderID int64) (*models.Payment, error) {
	var payment *models.Payment
	var paid *models.Order

	err := s.locker.WithCreditAndOrderLock(ctx, creditID, orderID, func(tx repositories.CreditTx) error {
		credit, err := tx.Credit(ctx)
		if err != nil {
			return err
		}
		order, err := tx.Order(ctx)
		if err != nil {
			return err
		}

		if credit.UserID != order.UserID || credit.ConferenceID != order.ConferenceID {
			return models.ErrCrossTenantMismatch
		}
		if !credit.IsAvailable() {
			return models.ErrCreditUnavailable
		}
		if !order.IsPending() {
			return models.ErrInvalidOrderState
		}

		payments, err := tx.Payments(ctx)
		if err != nil {
			return err
		}
		outstanding := order.Total.Sub(models.SucceededTotal(payments))
		if outstanding.LessThanOrEqual(decimal.Zero) {
			return models.ErrInvalidOrderState
		}

		applied := credit.RemainingAmount
		if applied.GreaterThan(outstanding) {
			applied = outstanding
		}

		payment = &models.Payment{
			Method: models.PaymentCredit,
			Status: models.PaymentSucceeded,
			Amount: applied,
			Note:   fmt.Sprintf("credit %d applied", credit.ID),
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}

		credit.RemainingAmount = credit.RemainingAmount.Sub(applied)
		credit.AppliedOrderID = &orderID
		if credit.RemainingAmount.IsZero() {
			credit.Status = models.CreditApplied
		}
		if err := tx.UpdateCredit(ctx, credit); err != nil {
			return err
		}

		if applied.Equal(outstanding) {
			if err := tx.SetOrderStatus(ctx, models.OrderPaid, true); err != nil {
				return err
			}
			order.Status = models.OrderPaid
			paid = order
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if paid != nil {
		s.notifier.OrderPaid(ctx, paid)
	}
	return payment, nil
}

// Gateway webhook event types the service acts on.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// HandleGatewayEvent processes an authenticated gateway webhook event.
// Events for unknown intents are logged and dropped so the gateway stops
// retrying them. Processing is idempotent: redelivered success events are
// no-ops.
func (s *PaymentService) HandleGatewayEvent(ctx context.Context, eventType, intentID string) error {
	record, err := s.payments.GetByIntentID(ctx, intentID)
	if err == models.ErrNoGatewayPayment {
		log.Printf("webhook for unknown intent %s ignored", intentID)
		return nil
	}
	if err != nil {
		return err
	}

	var paid *models.Order
	err = s.locker.WithOrderLock(ctx, record.OrderID, func(tx repositories.OrderTx) error {
		payments, err := tx.Payments(ctx)
		if err != nil {
			return err
		}

		var payment *models.Payment
		for _, p := range payments {
			if p.IntentID == intentID {
				payment = p
			}
		}
		if payment == nil {
			return models.ErrNoGatewayPayment
		}

		switch eventType {
		case EventIntentSucceeded:
			if payment.Status == models.PaymentSucceeded {
				return nil
			}
			if err := tx.SetPaymentStatus(ctx, payment.ID, models.PaymentSucceeded); err != nil {
				return err
			}

			order, err := tx.Order(ctx)
			if err != nil {
				return err
			}
			if !order.IsPending() {
				// Settled another way or cancelled by the expiry sweep.
				// The payment record is kept for reconciliation.
				log.Printf("intent %s succeeded but order %s is %s", intentID, order.Reference, order.Status)
				return nil
			}
			if err := tx.SetOrderStatus(ctx, models.OrderPaid, true); err != nil {
				return err
			}
			order.Status = models.OrderPaid
			paid = order

		case EventIntentFailed:
			if payment.Status != models.PaymentPending {
				return nil
			}
			return tx.SetPaymentStatus(ctx, payment.ID, models.PaymentFailed)

		default:
			log.Printf("unhandled gateway event %s ignored", eventType)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if paid != nil {
		s.notifier.OrderPaid(ctx, paid)
	}
	return nil
}
