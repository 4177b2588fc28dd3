package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/repositories"
)

// RefundService returns money against paid orders through the payment
// gateway and issues the refunded amount back as available store credit.
// The gateway call runs inside the order's locked transaction, so a
// declined refund leaves no record behind.
type RefundService struct {
	locker      PaymentLocker
	orders      OrderStore
	conferences ConferenceStore
	gatewayFor  GatewayFactory
	notifier    Notifier
}

// NewRefundService creates a new refund service
func NewRefundService(locker PaymentLocker, orders OrderStore, conferences ConferenceStore, gatewayFor GatewayFactory, notifier Notifier) *RefundService {
	return &RefundService{
		locker:      locker,
		orders:      orders,
		conferences: conferences,
		gatewayFor:  gatewayFor,
		notifier:    notifier,
	}
}

// RefundRequest describes a refund to issue. A zero Amount refunds the
// order's full remaining balance.
type RefundRequest struct {
	OrderID      int64
	Amount       decimal.Decimal
	Reason       string
	RecordedByID int64
}

// CreateRefund refunds part or all of a paid order. The refundable balance
// is the succeeded gateway payment total minus everything already refunded.
// The money goes back through the gateway against the order's last
// succeeded payment intent, and the same amount is issued to the buyer as
// an available credit tagged to the source order. A refund row is kept as
// the audit trail. The order moves to refunded once the refunded total
// covers its total, and partially refunded otherwise.
func (s *RefundService) CreateRefund(ctx context.Context, req RefundRequest) (*models.Credit, error) {
	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	conf, err := s.conferences.GetByID(ctx, order.ConferenceID)
	if err != nil {
		return nil, err
	}
	gw := s.gatewayFor(conf.StripeSecretKey)

	var credit *models.Credit
	var refunded *models.Order

	err = s.locker.WithOrderLock(ctx, req.OrderID, func(tx repositories.OrderTx) error {
		locked, err := tx.Order(ctx)
		if err != nil {
			return err
		}
		if !locked.IsRefundable() {
			return models.ErrInvalidOrderState
		}

		payments, err := tx.Payments(ctx)
		if err != nil {
			return err
		}
		intentID := lastSucceededIntent(payments)
		if intentID == "" {
			return models.ErrNoGatewayPayment
		}

		alreadyRefunded, err := tx.RefundedTotal(ctx)
		if err != nil {
			return err
		}

		balance := models.SucceededGatewayTotal(payments).Sub(alreadyRefunded)
		amount := req.Amount
		if amount.IsZero() {
			amount = balance
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			return models.ErrInvalidAmount
		}
		if amount.GreaterThan(balance) {
			return models.ErrRefundExceedsBalance
		}

		minor, err := ToMinorUnits(amount, conf.Currency)
		if err != nil {
			return err
		}

		// Each refund action is its own charge against the gateway,
		// so the idempotency key is fresh per attempt rather than
		// derived from the order.
		gwRefund, err := gw.CreateRefund(ctx, intentID, minor, uuid.NewString())
		if err != nil {
			return err
		}

		credit = &models.Credit{
			UserID:          locked.UserID,
			ConferenceID:    locked.ConferenceID,
			Status:          models.CreditAvailable,
			Amount:          amount,
			RemainingAmount: amount,
			SourceOrderID:   &locked.ID,
			Reason:          req.Reason,
		}
		if err := tx.InsertCredit(ctx, credit); err != nil {
			return err
		}

		recordedBy := req.RecordedByID
		if err := tx.InsertRefund(ctx, &models.Refund{
			Method:          models.RefundGateway,
			Amount:          amount,
			GatewayRefundID: gwRefund.ID,
			Reason:          req.Reason,
			RecordedByID:    &recordedBy,
		}); err != nil {
			return err
		}

		status := models.OrderPartiallyRefunded
		if alreadyRefunded.Add(amount).GreaterThanOrEqual(locked.Total) {
			status = models.OrderRefunded
		}
		if err := tx.SetOrderStatus(ctx, status, false); err != nil {
			return err
		}

		locked.Status = status
		refunded = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderRefunded(ctx, refunded)
	return credit, nil
}

func lastSucceededIntent(payments []*models.Payment) string {
	intentID := ""
	for _, p := range payments {
		if p.IsGateway() && p.Status == models.PaymentSucceeded {
			intentID = p.IntentID
		}
	}
	return intentID
}
