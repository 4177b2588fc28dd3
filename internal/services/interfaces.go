package services

import (
	"context"
	"time"

	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/repositories"
)

// Store interfaces consumed by the services. Each service depends on the
// narrowest slice of the repositories it needs, which keeps the in-memory
// test doubles small.

// ConferenceStore provides read access to conferences
type ConferenceStore interface {
	GetByID(ctx context.Context, id int64) (*models.Conference, error)
	GetBySlug(ctx context.Context, slug string) (*models.Conference, error)
}

// CatalogStore provides read access to ticket types and add-ons
type CatalogStore interface {
	GetTicketType(ctx context.Context, id int64) (*models.TicketType, error)
	GetAddOn(ctx context.Context, id int64) (*models.AddOn, error)
	ListTicketTypes(ctx context.Context, conferenceID int64) ([]*models.TicketType, error)
	ListAddOns(ctx context.Context, conferenceID int64) ([]*models.AddOn, error)
}

// VoucherStore provides voucher persistence
type VoucherStore interface {
	Create(ctx context.Context, v *models.Voucher) error
	CreateBatch(ctx context.Context, vouchers []*models.Voucher) error
	GetByID(ctx context.Context, id int64) (*models.Voucher, error)
	GetByCode(ctx context.Context, conferenceID int64, code string) (*models.Voucher, error)
	ExistingCodes(ctx context.Context, conferenceID int64, codes []string) (map[string]bool, error)
	DecrementUsage(ctx context.Context, voucherID int64) error
}

// CartStore provides cart persistence
type CartStore interface {
	Create(ctx context.Context, cart *models.Cart) error
	GetByID(ctx context.Context, id int64) (*models.Cart, error)
	GetOpenCart(ctx context.Context, userID, conferenceID int64) (*models.Cart, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	SetItemQuantity(ctx context.Context, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, itemID int64) error
	SetVoucher(ctx context.Context, cartID int64, voucherID *int64) error
	Touch(ctx context.Context, cartID int64, expiresAt time.Time) error
	SetStatus(ctx context.Context, cartID int64, status models.CartStatus) error
}

// OrderStore provides read access to orders
type OrderStore interface {
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByReference(ctx context.Context, reference string) (*models.Order, error)
	ListByUser(ctx context.Context, userID, conferenceID int64) ([]*models.Order, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Order, error)
	PaidTicketQuantity(ctx context.Context, userID, ticketTypeID int64) (int, error)
	PaidAddOnQuantity(ctx context.Context, userID, addonID int64) (int, error)
	SoldQuantityByTicketType(ctx context.Context, conferenceID int64, now time.Time) (map[int64]int, error)
	SoldQuantityByAddOn(ctx context.Context, conferenceID int64, now time.Time) (map[int64]int, error)
}

// CheckoutLocker serializes checkouts per conference
type CheckoutLocker interface {
	WithConferenceLock(ctx context.Context, conferenceID int64, fn func(repositories.CheckoutTx) error) error
}

// PaymentLocker serializes payment and refund mutations per order
type PaymentLocker interface {
	WithOrderLock(ctx context.Context, orderID int64, fn func(repositories.OrderTx) error) error
	WithCreditAndOrderLock(ctx context.Context, creditID, orderID int64, fn func(repositories.CreditTx) error) error
}

// PaymentReader provides read access to payment records
type PaymentReader interface {
	ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
}

// CreditStore provides read access to store credits
type CreditStore interface {
	GetByID(ctx context.Context, id int64) (*models.Credit, error)
	ListByUser(ctx context.Context, userID, conferenceID int64) ([]*models.Credit, error)
}

// CustomerStore provides the user to gateway customer mapping
type CustomerStore interface {
	Get(ctx context.Context, userID, conferenceID int64) (string, error)
	Save(ctx context.Context, gc *models.GatewayCustomer) error
}

// SponsorStore provides sponsor persistence
type SponsorStore interface {
	Upsert(ctx context.Context, s *models.Sponsor) (bool, error)
	ListByConference(ctx context.Context, conferenceID int64) ([]*models.Sponsor, error)
}

// ScheduleStore provides persistence for synced schedule data
type ScheduleStore interface {
	UpsertRoom(ctx context.Context, room *models.Room) error
	UpsertSpeaker(ctx context.Context, s *models.Speaker) error
	UpsertTalk(ctx context.Context, talk *models.Talk) error
	GetRoomByUpstreamID(ctx context.Context, conferenceID, upstreamID int64) (*models.Room, error)
}

// UserStore provides read access to users
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}
