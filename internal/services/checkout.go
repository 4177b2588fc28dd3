package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/repositories"
)

// CheckoutService converts open carts into pending orders. The conversion
// runs under a per-conference lock so that venue capacity can never be
// oversold: concurrent checkouts queue, and each one sees every order the
// previous ones committed.
type CheckoutService struct {
	locker      CheckoutLocker
	carts       *CartService
	cartStore   CartStore
	conferences ConferenceStore
	catalog     CatalogStore
	vouchers    VoucherStore
	orders      OrderStore
	payments    PaymentLocker
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(locker CheckoutLocker, carts *CartService, cartStore CartStore, conferences ConferenceStore, catalog CatalogStore, vouchers VoucherStore, orders OrderStore, payments PaymentLocker) *CheckoutService {
	return &CheckoutService{
		locker:      locker,
		carts:       carts,
		cartStore:   cartStore,
		conferences: conferences,
		catalog:     catalog,
		vouchers:    vouchers,
		orders:      orders,
		payments:    payments,
	}
}

// CheckoutRequest carries the billing details collected at checkout
type CheckoutRequest struct {
	UserID       int64
	ConferenceID int64
	BillingName  string
	BillingEmail string
}

// Checkout converts the user's open cart into a pending order. The cart is
// re-validated from scratch, capacity is checked under the conference lock,
// the voucher use is consumed, and the cart items are snapshotted into
// immutable order line items. Any failure rolls the whole conversion back.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	cart, err := s.cartStore.GetOpenCart(ctx, req.UserID, req.ConferenceID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if cart.IsExpired(now) {
		return nil, models.ErrCartExpired
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	conf, err := s.conferences.GetByID(ctx, req.ConferenceID)
	if err != nil {
		return nil, err
	}

	if err := s.revalidateItems(ctx, cart, now); err != nil {
		return nil, err
	}

	var voucher *models.Voucher
	if cart.VoucherID != nil {
		voucher, err = s.vouchers.GetByID(ctx, *cart.VoucherID)
		if err != nil {
			return nil, err
		}
		if !voucher.IsRedeemable(now) {
			if voucher.IsExhausted() {
				return nil, models.ErrVoucherExhausted
			}
			return nil, models.ErrVoucherInvalid
		}
	}

	summary, err := s.carts.Summarize(ctx, cart)
	if err != nil {
		return nil, err
	}

	holdExpiry := now.Add(conf.HoldDuration())
	order := &models.Order{
		ConferenceID:   req.ConferenceID,
		UserID:         req.UserID,
		Reference:      models.GenerateOrderReference(),
		Status:         models.OrderPending,
		Subtotal:       summary.Subtotal,
		DiscountAmount: summary.Discount,
		Total:          summary.Total,
		VoucherID:      cart.VoucherID,
		BillingName:    req.BillingName,
		BillingEmail:   req.BillingEmail,
		HoldExpiresAt:  &holdExpiry,
		LineItems:      buildLineItems(summary, voucher),
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := order.ValidateLineItems(); err != nil {
		return nil, err
	}

	ticketQty := cart.TicketQuantity()

	err = s.locker.WithConferenceLock(ctx, req.ConferenceID, func(tx repositories.CheckoutTx) error {
		if ticketQty > 0 {
			// The capacity comes from the locked row, not the record
			// loaded before the lock. A staff member shrinking the venue
			// mid-checkout must not be raced past.
			capacity, err := tx.Capacity(ctx)
			if err != nil {
				return err
			}
			if capacity > 0 {
				sold, err := tx.SoldTicketCount(ctx, now)
				if err != nil {
					return err
				}
				remaining := capacity - sold
				if ticketQty > remaining {
					if remaining < 0 {
						remaining = 0
					}
					return &models.CapacityExceededError{Remaining: remaining}
				}
			}
		}

		if voucher != nil {
			if err := tx.IncrementVoucherUse(ctx, voucher.ID); err != nil {
				return err
			}
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		return tx.MarkCartCheckedOut(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *CheckoutService) revalidateItems(ctx context.Context, cart *models.Cart, now time.Time) error {
	var unlocksHidden bool
	if cart.VoucherID != nil {
		v, err := s.vouchers.GetByID(ctx, *cart.VoucherID)
		if err != nil {
			return err
		}
		unlocksHidden = v.UnlocksHiddenTickets
	}

	ticketCounts, err := s.orders.SoldQuantityByTicketType(ctx, cart.ConferenceID, now)
	if err != nil {
		return err
	}
	addonCounts, err := s.orders.SoldQuantityByAddOn(ctx, cart.ConferenceID, now)
	if err != nil {
		return err
	}

	for _, item := range cart.Items {
		if item.TicketTypeID != nil {
			t, err := s.catalog.GetTicketType(ctx, *item.TicketTypeID)
			if err != nil {
				return err
			}
			if !t.IsOnSale(now) {
				return models.ErrItemUnavailable
			}
			if t.Hidden && !unlocksHidden {
				return models.ErrItemUnavailable
			}
			if t.LimitPerUser > 0 {
				owned, err := s.orders.PaidTicketQuantity(ctx, cart.UserID, t.ID)
				if err != nil {
					return err
				}
				if owned+item.Quantity > t.LimitPerUser {
					return models.ErrLimitExceeded
				}
			}
			if err := CheckStock(t.TotalQuantity, ticketCounts[t.ID], 0, item.Quantity); err != nil {
				return err
			}
		} else {
			a, err := s.catalog.GetAddOn(ctx, *item.AddOnID)
			if err != nil {
				return err
			}
			if !a.IsOnSale(now) {
				return models.ErrItemUnavailable
			}
			if a.LimitPerUser > 0 {
				owned, err := s.orders.PaidAddOnQuantity(ctx, cart.UserID, a.ID)
				if err != nil {
					return err
				}
				if owned+item.Quantity > a.LimitPerUser {
					return models.ErrLimitExceeded
				}
			}
			if err := CheckStock(a.TotalQuantity, addonCounts[a.ID], 0, item.Quantity); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildLineItems snapshots summary lines into order line items and apportions
// the order-level discount across the eligible lines. The last eligible line
// absorbs the rounding remainder so the per-line discounts always sum to the
// order discount.
func buildLineItems(summary *models.CartSummary, voucher *models.Voucher) []models.OrderLineItem {
	lines := make([]models.OrderLineItem, 0, len(summary.Lines))

	eligible := decimal.Zero
	for _, l := range summary.Lines {
		if voucherCovers(voucher, l) {
			eligible = eligible.Add(l.LineTotal)
		}
	}

	remaining := summary.Discount
	lastEligible := -1
	for i, l := range summary.Lines {
		if voucherCovers(voucher, l) {
			lastEligible = i
		}
	}

	for i, l := range summary.Lines {
		line := models.OrderLineItem{
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			LineTotal:      l.LineTotal,
			DiscountAmount: decimal.Zero,
			TicketTypeID:   l.TicketTypeID,
			AddOnID:        l.AddOnID,
		}

		if voucherCovers(voucher, l) && eligible.GreaterThan(decimal.Zero) && summary.Discount.GreaterThan(decimal.Zero) {
			if i == lastEligible {
				line.DiscountAmount = remaining
			} else {
				share := summary.Discount.Mul(l.LineTotal).Div(eligible).Round(2)
				line.DiscountAmount = share
				remaining = remaining.Sub(share)
			}
		}

		lines = append(lines, line)
	}

	return lines
}

func voucherCovers(voucher *models.Voucher, l models.CartSummaryLine) bool {
	if voucher == nil {
		return false
	}
	if l.TicketTypeID != nil {
		return voucher.AppliesToTicketType(*l.TicketTypeID)
	}
	if l.AddOnID != nil {
		return voucher.AppliesToAddOn(*l.AddOnID)
	}
	return false
}

// ExpireStalePendingOrders cancels pending orders whose capacity hold has
// lapsed, releasing their voucher uses. Each order is re-checked under its
// row lock, so a payment settling concurrently wins over the sweep.
func (s *CheckoutService) ExpireStalePendingOrders(ctx context.Context, limit int) (int, error) {
	now := time.Now()
	stale, err := s.orders.FindExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		err := s.payments.WithOrderLock(ctx, candidate.ID, func(tx repositories.OrderTx) error {
			order, err := tx.Order(ctx)
			if err != nil {
				return err
			}

			// Settled or already cancelled while we were scanning.
			if !order.IsPending() || order.HasLiveHold(now) {
				return nil
			}

			if err := tx.SetOrderStatus(ctx, models.OrderCancelled, true); err != nil {
				return err
			}

			if order.VoucherID != nil {
				if err := tx.DecrementVoucherUse(ctx, *order.VoucherID); err != nil {
					return err
				}
			}

			expired++
			return nil
		})
		if err != nil {
			log.Printf("failed to expire order %d: %v", candidate.ID, err)
		}
	}

	return expired, nil
}
