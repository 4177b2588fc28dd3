package services

import (
	"context"
	"errors"
	"testing"

	"conference-registration-platform/internal/models"
)

func seedPaidGatewayOrder(e *env, conferenceID, userID, ticketTypeID int64, total, intentID string) *models.Order {
	order := e.seedOrder(userID, conferenceID, models.OrderPaid, total, ticketTypeID, 1)
	e.seedPayment(order.ID, models.PaymentStripe, models.PaymentSucceeded, total, intentID)
	return order
}

func (e *env) refundRows(orderID int64) []*models.Refund {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	return cloneRefunds(e.db.refunds[orderID])
}

func TestPartialGatewayRefund(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := seedPaidGatewayOrder(e, conf.ID, user.ID, ticket.ID, "100.00", "pi_1")

	credit, err := e.refunds.CreateRefund(context.Background(), RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("40.00"),
		Reason:       "workshop cancelled",
		RecordedByID: staff.ID,
	})
	if err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}

	if credit.Status != models.CreditAvailable || !credit.Amount.Equal(dec("40.00")) {
		t.Errorf("expected an available 40.00 credit, got %+v", credit)
	}
	if credit.SourceOrderID == nil || *credit.SourceOrderID != order.ID {
		t.Errorf("credit should reference its source order")
	}
	if got := e.order(t, order.ID).Status; got != models.OrderPartiallyRefunded {
		t.Errorf("order status = %s, want partially refunded", got)
	}
	if got := e.gateway.RefundedMinor("pi_1"); got != 4000 {
		t.Errorf("gateway refunded %d minor units, want 4000", got)
	}

	rows := e.refundRows(order.ID)
	if len(rows) != 1 || rows[0].GatewayRefundID == "" {
		t.Errorf("expected one refund row carrying the gateway refund id, got %+v", rows)
	}
	if len(e.notifier.refunded) != 1 {
		t.Errorf("expected one refund notification, got %d", len(e.notifier.refunded))
	}
}

func TestFullRefundIssuesAvailableCredit(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := seedPaidGatewayOrder(e, conf.ID, user.ID, ticket.ID, "100.00", "pi_1")

	ctx := context.Background()
	if _, err := e.refunds.CreateRefund(ctx, RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("100.00"),
		Reason:       "event cancelled",
		RecordedByID: staff.ID,
	}); err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}

	if got := e.order(t, order.ID).Status; got != models.OrderRefunded {
		t.Errorf("order status = %s, want refunded", got)
	}

	credits, err := e.creditRepo.ListByUser(ctx, user.ID, conf.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(credits) != 1 {
		t.Fatalf("expected one credit from the refund, got %d", len(credits))
	}
	got := credits[0]
	if got.Status != models.CreditAvailable || !got.RemainingAmount.Equal(dec("100.00")) {
		t.Errorf("expected an available 100.00 credit, got %+v", got)
	}
}

func TestZeroAmountRefundsFullBalance(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := seedPaidGatewayOrder(e, conf.ID, user.ID, ticket.ID, "100.00", "pi_1")

	credit, err := e.refunds.CreateRefund(context.Background(), RefundRequest{
		OrderID:      order.ID,
		Reason:       "event cancelled",
		RecordedByID: staff.ID,
	})
	if err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}
	if !credit.Amount.Equal(dec("100.00")) {
		t.Errorf("credit amount = %s, want the full 100.00", credit.Amount)
	}
	if got := e.order(t, order.ID).Status; got != models.OrderRefunded {
		t.Errorf("order status = %s, want refunded", got)
	}
	if got := e.gateway.RefundedMinor("pi_1"); got != 10000 {
		t.Errorf("gateway refunded %d minor units, want 10000", got)
	}
}

func TestRefundCannotExceedBalance(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := seedPaidGatewayOrder(e, conf.ID, user.ID, ticket.ID, "100.00", "pi_1")

	ctx := context.Background()
	_, err := e.refunds.CreateRefund(ctx, RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("150.00"),
		RecordedByID: staff.ID,
	})
	if !errors.Is(err, models.ErrRefundExceedsBalance) {
		t.Fatalf("expected ErrRefundExceedsBalance, got %v", err)
	}
	if len(e.refundRows(order.ID)) != 0 {
		t.Error("rejected refund must leave no rows")
	}
	if credits, _ := e.creditRepo.ListByUser(ctx, user.ID, conf.ID); len(credits) != 0 {
		t.Errorf("rejected refund must issue no credit, got %d", len(credits))
	}
}

func TestRefundBalanceCountsGatewayPaymentsOnly(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)

	// Half paid by bank transfer, half through the gateway. Only the
	// gateway half can come back through it.
	order := e.seedOrder(user.ID, conf.ID, models.OrderPaid, "100.00", ticket.ID, 1)
	e.seedPayment(order.ID, models.PaymentManual, models.PaymentSucceeded, "50.00", "")
	e.seedPayment(order.ID, models.PaymentStripe, models.PaymentSucceeded, "50.00", "pi_1")

	credit, err := e.refunds.CreateRefund(context.Background(), RefundRequest{
		OrderID:      order.ID,
		RecordedByID: staff.ID,
	})
	if err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}
	if !credit.Amount.Equal(dec("50.00")) {
		t.Errorf("credit amount = %s, want the gateway half of 50.00", credit.Amount)
	}
	if got := e.order(t, order.ID).Status; got != models.OrderPartiallyRefunded {
		t.Errorf("order status = %s, want partially refunded", got)
	}
}

func TestSequentialRefundsAreCapped(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := seedPaidGatewayOrder(e, conf.ID, user.ID, ticket.ID, "100.00", "pi_1")

	ctx := context.Background()
	for _, amount := range []string{"60.00", "40.00"} {
		if _, err := e.refunds.CreateRefund(ctx, RefundRequest{
			OrderID:      order.ID,
			Amount:       dec(amount),
			RecordedByID: staff.ID,
		}); err != nil {
			t.Fatalf("refund of %s: %v", amount, err)
		}
	}

	if got := e.order(t, order.ID).Status; got != models.OrderRefunded {
		t.Errorf("order status = %s, want refunded after the balance hits zero", got)
	}
	if credits, _ := e.creditRepo.ListByUser(ctx, user.ID, conf.ID); len(credits) != 2 {
		t.Errorf("expected a credit per refund, got %d", len(credits))
	}

	// The balance is now exhausted.
	_, err := e.refunds.CreateRefund(ctx, RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("0.01"),
		RecordedByID: staff.ID,
	})
	if !errors.Is(err, models.ErrInvalidOrderState) && !errors.Is(err, models.ErrRefundExceedsBalance) {
		t.Fatalf("expected the third refund to be rejected, got %v", err)
	}
}

func TestRefundCreditIsSpendable(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := seedPaidGatewayOrder(e, conf.ID, user.ID, ticket.ID, "100.00", "pi_1")

	ctx := context.Background()
	credit, err := e.refunds.CreateRefund(ctx, RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("30.00"),
		Reason:       "goodwill",
		RecordedByID: staff.ID,
	})
	if err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}
	if got := e.gateway.RefundedMinor("pi_1"); got != 3000 {
		t.Errorf("gateway refunded %d minor units, want 3000", got)
	}

	// The issued credit is immediately spendable on a new order.
	next := e.seedOrder(user.ID, conf.ID, models.OrderPending, "30.00", ticket.ID, 1)
	if _, err := e.payments.ApplyCredit(ctx, credit.ID, next.ID); err != nil {
		t.Fatalf("ApplyCredit: %v", err)
	}
	if got := e.order(t, next.ID).Status; got != models.OrderPaid {
		t.Errorf("credit should cover the new order, got %s", got)
	}
}

func TestGatewayRefundRequiresGatewayPayment(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)

	order := e.seedOrder(user.ID, conf.ID, models.OrderPaid, "100.00", ticket.ID, 1)
	e.seedPayment(order.ID, models.PaymentManual, models.PaymentSucceeded, "100.00", "")

	_, err := e.refunds.CreateRefund(context.Background(), RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("50.00"),
		RecordedByID: staff.ID,
	})
	if !errors.Is(err, models.ErrNoGatewayPayment) {
		t.Fatalf("expected ErrNoGatewayPayment, got %v", err)
	}
}

func TestGatewayDeclineRollsBack(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := seedPaidGatewayOrder(e, conf.ID, user.ID, ticket.ID, "100.00", "pi_1")

	e.gateway.FailNext()

	ctx := context.Background()
	_, err := e.refunds.CreateRefund(ctx, RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("40.00"),
		RecordedByID: staff.ID,
	})
	var gwErr *models.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected a gateway error, got %v", err)
	}

	if got := e.order(t, order.ID).Status; got != models.OrderPaid {
		t.Errorf("declined refund must leave the order paid, got %s", got)
	}
	if len(e.refundRows(order.ID)) != 0 {
		t.Error("declined refund must leave no rows")
	}
	if credits, _ := e.creditRepo.ListByUser(ctx, user.ID, conf.ID); len(credits) != 0 {
		t.Errorf("declined refund must issue no credit, got %d", len(credits))
	}
	if len(e.notifier.refunded) != 0 {
		t.Errorf("no refund notification expected, got %d", len(e.notifier.refunded))
	}
}

func TestRefundRejectsPendingOrder(t *testing.T) {
	e := newEnv(t)
	conf := e.addConference("gocon", 0)
	staff := e.addUser("staff@example.com")
	user := e.addUser("attendee@example.com")
	ticket := e.addTicketType(conf.ID, "General", "100.00", 0, 0, false)
	order := e.seedOrder(user.ID, conf.ID, models.OrderPending, "100.00", ticket.ID, 1)

	_, err := e.refunds.CreateRefund(context.Background(), RefundRequest{
		OrderID:      order.ID,
		Amount:       dec("10.00"),
		RecordedByID: staff.ID,
	})
	if !errors.Is(err, models.ErrInvalidOrderState) {
		t.Fatalf("expected ErrInvalidOrderState, got %v", err)
	}
}
