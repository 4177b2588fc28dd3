package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validOrder() *Order {
	return &Order{
		Reference:      "REG-20260301-482910",
		Status:         OrderPending,
		Subtotal:       dec("100.00"),
		DiscountAmount: dec("10.00"),
		Total:          dec("90.00"),
		BillingName:    "Test User",
		BillingEmail:   "test@example.com",
	}
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Order)
		wantErr bool
	}{
		{"valid", func(o *Order) {}, false},
		{"bad reference", func(o *Order) { o.Reference = "ORD-123" }, true},
		{"bad status", func(o *Order) { o.Status = "shipped" }, true},
		{"negative discount", func(o *Order) { o.DiscountAmount = dec("-1") }, true},
		{"total mismatch", func(o *Order) { o.Total = dec("100.00") }, true},
		{"missing billing email", func(o *Order) { o.BillingEmail = "" }, true},
		{"bad billing email", func(o *Order) { o.BillingEmail = "not-an-email" }, true},
		{"blank billing name", func(o *Order) { o.BillingName = "   " }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := validOrder()
			tc.mutate(o)
			err := o.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestOrderValidateLineItems(t *testing.T) {
	o := validOrder()
	o.LineItems = []OrderLineItem{
		{Description: "General", Quantity: 2, UnitPrice: dec("40.00"), LineTotal: dec("80.00")},
		{Description: "Dinner", Quantity: 1, UnitPrice: dec("20.00"), LineTotal: dec("20.00")},
	}
	if err := o.ValidateLineItems(); err != nil {
		t.Errorf("ValidateLineItems: %v", err)
	}

	o.LineItems[1].LineTotal = dec("25.00")
	if err := o.ValidateLineItems(); err == nil {
		t.Error("mismatched line totals should fail")
	}

	o.LineItems = nil
	if err := o.ValidateLineItems(); err == nil {
		t.Error("an order without line items should fail")
	}

	o.LineItems = []OrderLineItem{{Description: "General", Quantity: 0, LineTotal: dec("90.00")}}
	if err := o.ValidateLineItems(); err == nil {
		t.Error("a zero quantity line should fail")
	}
}

func TestGenerateOrderReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref := GenerateOrderReference()
		if !orderReferenceRegex.MatchString(ref) {
			t.Fatalf("reference %q does not match the expected format", ref)
		}
		seen[ref] = true
	}
	if len(seen) < 45 {
		t.Errorf("references look non-random: %d unique out of 50", len(seen))
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderPending, OrderPaid, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderRefunded, false},
		{OrderPaid, OrderRefunded, true},
		{OrderPaid, OrderPartiallyRefunded, true},
		{OrderPaid, OrderPending, false},
		{OrderPartiallyRefunded, OrderRefunded, true},
		{OrderPartiallyRefunded, OrderPaid, false},
		{OrderCancelled, OrderPaid, false},
		{OrderRefunded, OrderPaid, false},
	}
	for _, tc := range tests {
		o := &Order{Status: tc.from}
		if got := o.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestHasLiveHold(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	tests := []struct {
		name   string
		status OrderStatus
		hold   *time.Time
		want   bool
	}{
		{"pending future hold", OrderPending, &future, true},
		{"pending lapsed hold", OrderPending, &past, false},
		{"pending no hold", OrderPending, nil, false},
		{"paid with hold", OrderPaid, &future, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := &Order{Status: tc.status, HoldExpiresAt: tc.hold}
			if got := o.HasLiveHold(now); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTicketQuantity(t *testing.T) {
	addonID := int64(7)
	ticketID := int64(3)
	o := &Order{LineItems: []OrderLineItem{
		{Quantity: 2, TicketTypeID: &ticketID},
		{Quantity: 3, AddOnID: &addonID},
	}}
	if got := o.TicketQuantity(); got != 2 {
		t.Errorf("TicketQuantity = %d, want add-ons excluded", got)
	}
}
