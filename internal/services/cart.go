package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
)

// CartService manages open carts: item mutations, voucher application and
// pricing. Every mutation re-validates availability so a stale page cannot
// add items that have since sold out, but the authoritative capacity check
// still happens at checkout.
type CartService struct {
	carts       CartStore
	catalog     CatalogStore
	vouchers    VoucherStore
	orders      OrderStore
	conferences ConferenceStore
	cartTTL     time.Duration
}

// NewCartService creates a new cart service
func NewCartService(carts CartStore, catalog CatalogStore, vouchers VoucherStore, orders OrderStore, conferences ConferenceStore, cartTTL time.Duration) *CartService {
	return &CartService{
		carts:       carts,
		catalog:     catalog,
		vouchers:    vouchers,
		orders:      orders,
		conferences: conferences,
		cartTTL:     cartTTL,
	}
}

// GetOrCreateCart returns the user's open cart for a conference, creating
// one when none exists. An expired open cart is closed and replaced.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID, conferenceID int64) (*models.Cart, error) {
	if _, err := s.conferences.GetByID(ctx, conferenceID); err != nil {
		return nil, err
	}

	now := time.Now()
	cart, err := s.carts.GetOpenCart(ctx, userID, conferenceID)
	if err == nil {
		if !cart.IsExpired(now) {
			return cart, nil
		}
		if err := s.carts.SetStatus(ctx, cart.ID, models.CartExpired); err != nil {
			return nil, err
		}
	} else if err != models.ErrCartNotFound {
		return nil, err
	}

	cart = &models.Cart{
		UserID:       userID,
		ConferenceID: conferenceID,
		Status:       models.CartOpen,
		ExpiresAt:    now.Add(s.cartTTL),
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

// AddTicket adds quantity of a ticket type to the user's cart
func (s *CartService) AddTicket(ctx context.Context, userID, conferenceID, ticketTypeID int64, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	cart, err := s.GetOrCreateCart(ctx, userID, conferenceID)
	if err != nil {
		return nil, err
	}

	t, err := s.catalog.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	if t.ConferenceID != conferenceID {
		return nil, models.ErrItemUnavailable
	}

	now := time.Now()
	if !t.IsOnSale(now) {
		return nil, models.ErrItemUnavailable
	}

	if t.Hidden {
		unlocked, err := s.hiddenUnlocked(ctx, cart)
		if err != nil {
			return nil, err
		}
		if !unlocked {
			return nil, models.ErrItemUnavailable
		}
	}

	inCart := 0
	for _, item := range cart.Items {
		if item.TicketTypeID != nil && *item.TicketTypeID == ticketTypeID {
			inCart = item.Quantity
		}
	}

	if t.LimitPerUser > 0 {
		owned, err := s.orders.PaidTicketQuantity(ctx, userID, ticketTypeID)
		if err != nil {
			return nil, err
		}
		if owned+inCart+quantity > t.LimitPerUser {
			return nil, models.ErrLimitExceeded
		}
	}

	if t.TotalQuantity > 0 {
		counts, err := s.orders.SoldQuantityByTicketType(ctx, conferenceID, now)
		if err != nil {
			return nil, err
		}
		if err := CheckStock(t.TotalQuantity, counts[ticketTypeID], inCart, quantity); err != nil {
			return nil, err
		}
	}

	item := &models.CartItem{
		CartID:       cart.ID,
		TicketTypeID: &ticketTypeID,
		Quantity:     quantity,
	}
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return nil, err
	}

	if err := s.carts.Touch(ctx, cart.ID, now.Add(s.cartTTL)); err != nil {
		return nil, err
	}

	return s.carts.GetByID(ctx, cart.ID)
}

// AddAddOn adds quantity of an add-on to the user's cart. An add-on with
// required ticket types can only be added when the cart already contains one
// of them.
func (s *CartService) AddAddOn(ctx context.Context, userID, conferenceID, addonID int64, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	cart, err := s.GetOrCreateCart(ctx, userID, conferenceID)
	if err != nil {
		return nil, err
	}

	a, err := s.catalog.GetAddOn(ctx, addonID)
	if err != nil {
		return nil, err
	}
	if a.ConferenceID != conferenceID {
		return nil, models.ErrItemUnavailable
	}

	now := time.Now()
	if !a.IsOnSale(now) {
		return nil, models.ErrItemUnavailable
	}

	if a.RequiresTicketType() {
		satisfied := false
		for _, item := range cart.Items {
			if item.TicketTypeID == nil {
				continue
			}
			for _, required := range a.RequiredTicketTypeIDs {
				if *item.TicketTypeID == required {
					satisfied = true
				}
			}
		}
		if !satisfied {
			return nil, models.ErrItemUnavailable
		}
	}

	inCart := 0
	for _, item := range cart.Items {
		if item.AddOnID != nil && *item.AddOnID == addonID {
			inCart = item.Quantity
		}
	}

	if a.LimitPerUser > 0 {
		owned, err := s.orders.PaidAddOnQuantity(ctx, userID, addonID)
		if err != nil {
			return nil, err
		}
		if owned+inCart+quantity > a.LimitPerUser {
			return nil, models.ErrLimitExceeded
		}
	}

	if a.TotalQuantity > 0 {
		counts, err := s.orders.SoldQuantityByAddOn(ctx, conferenceID, now)
		if err != nil {
			return nil, err
		}
		if err := CheckStock(a.TotalQuantity, counts[addonID], inCart, quantity); err != nil {
			return nil, err
		}
	}

	item := &models.CartItem{
		CartID:   cart.ID,
		AddOnID:  &addonID,
		Quantity: quantity,
	}
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return nil, err
	}

	if err := s.carts.Touch(ctx, cart.ID, now.Add(s.cartTTL)); err != nil {
		return nil, err
	}

	return s.carts.GetByID(ctx, cart.ID)
}

// RemoveItem removes a cart line owned by the user
func (s *CartService) RemoveItem(ctx context.Context, userID, conferenceID, itemID int64) (*models.Cart, error) {
	cart, err := s.carts.GetOpenCart(ctx, userID, conferenceID)
	if err != nil {
		return nil, err
	}

	owned := false
	for _, item := range cart.Items {
		if item.ID == itemID {
			owned = true
		}
	}
	if !owned {
		return nil, models.ErrCartNotFound
	}

	if err := s.carts.RemoveItem(ctx, itemID); err != nil {
		return nil, err
	}

	return s.carts.GetByID(ctx, cart.ID)
}

// ApplyVoucher attaches a voucher to the user's cart after validating it
func (s *CartService) ApplyVoucher(ctx context.Context, userID, conferenceID int64, code string) (*models.Cart, error) {
	cart, err := s.GetOrCreateCart(ctx, userID, conferenceID)
	if err != nil {
		return nil, err
	}

	v, err := s.vouchers.GetByCode(ctx, conferenceID, code)
	if err != nil {
		return nil, err
	}

	if v.IsExhausted() {
		return nil, models.ErrVoucherExhausted
	}
	if !v.IsRedeemable(time.Now()) {
		return nil, models.ErrVoucherInvalid
	}

	if err := s.carts.SetVoucher(ctx, cart.ID, &v.ID); err != nil {
		return nil, err
	}

	return s.carts.GetByID(ctx, cart.ID)
}

// RemoveVoucher detaches the voucher from the user's cart. Hidden tickets
// unlocked by the voucher stay in the cart; checkout re-validates them.
func (s *CartService) RemoveVoucher(ctx context.Context, userID, conferenceID int64) (*models.Cart, error) {
	cart, err := s.carts.GetOpenCart(ctx, userID, conferenceID)
	if err != nil {
		return nil, err
	}

	if err := s.carts.SetVoucher(ctx, cart.ID, nil); err != nil {
		return nil, err
	}

	return s.carts.GetByID(ctx, cart.ID)
}

func (s *CartService) hiddenUnlocked(ctx context.Context, cart *models.Cart) (bool, error) {
	if cart.VoucherID == nil {
		return false, nil
	}

	v, err := s.vouchers.GetByID(ctx, *cart.VoucherID)
	if err != nil {
		return false, err
	}

	return v.UnlocksHiddenTickets, nil
}

// Summarize prices a cart: one summary line per item, the voucher discount
// against the eligible subtotal, and the grand total. The summary is
// recomputed on every call and never stored.
func (s *CartService) Summarize(ctx context.Context, cart *models.Cart) (*models.CartSummary, error) {
	summary := &models.CartSummary{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}

	var voucher *models.Voucher
	if cart.VoucherID != nil {
		v, err := s.vouchers.GetByID(ctx, *cart.VoucherID)
		if err != nil {
			return nil, err
		}
		voucher = v
		summary.VoucherCode = v.Code
	}

	eligible := decimal.Zero
	for _, item := range cart.Items {
		line := models.CartSummaryLine{
			Quantity: item.Quantity,
			Discount: decimal.Zero,
		}

		if item.TicketTypeID != nil {
			t, err := s.catalog.GetTicketType(ctx, *item.TicketTypeID)
			if err != nil {
				return nil, err
			}
			line.TicketTypeID = item.TicketTypeID
			line.Description = t.Name
			line.UnitPrice = t.Price
			if voucher != nil && voucher.AppliesToTicketType(t.ID) {
				eligible = eligible.Add(t.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			}
		} else {
			a, err := s.catalog.GetAddOn(ctx, *item.AddOnID)
			if err != nil {
				return nil, err
			}
			line.AddOnID = item.AddOnID
			line.Description = a.Name
			line.UnitPrice = a.Price
			if voucher != nil && voucher.AppliesToAddOn(a.ID) {
				eligible = eligible.Add(a.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			}
		}

		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		summary.Subtotal = summary.Subtotal.Add(line.LineTotal)
		summary.Lines = append(summary.Lines, line)
	}

	if voucher != nil {
		summary.Discount = voucher.DiscountFor(eligible)
	}

	summary.Total = summary.Subtotal.Sub(summary.Discount)
	return summary, nil
}
