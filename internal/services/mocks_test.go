package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/repositories"
)

// memDB holds the in-memory state shared by every test double. A single
// mutex stands in for the database row locks, so the locker doubles
// serialize callbacks the same way the real stores do.
type memDB struct {
	mu     sync.Mutex
	nextID int64

	conferences map[int64]*models.Conference
	ticketTypes map[int64]*models.TicketType
	addons      map[int64]*models.AddOn
	vouchers    map[int64]*models.Voucher
	carts       map[int64]*models.Cart
	orders      map[int64]*models.Order
	payments    map[int64][]*models.Payment
	refunds     map[int64][]*models.Refund
	credits     map[int64]*models.Credit
	customers   map[[2]int64]string
	users       map[int64]*models.User
	sponsors    map[[2]int64]*models.Sponsor
}

func newMemDB() *memDB {
	return &memDB{
		conferences: make(map[int64]*models.Conference),
		ticketTypes: make(map[int64]*models.TicketType),
		addons:      make(map[int64]*models.AddOn),
		vouchers:    make(map[int64]*models.Voucher),
		carts:       make(map[int64]*models.Cart),
		orders:      make(map[int64]*models.Order),
		payments:    make(map[int64][]*models.Payment),
		refunds:     make(map[int64][]*models.Refund),
		credits:     make(map[int64]*models.Credit),
		customers:   make(map[[2]int64]string),
		users:       make(map[int64]*models.User),
		sponsors:    make(map[[2]int64]*models.Sponsor),
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.LineItems = append([]models.OrderLineItem(nil), o.LineItems...)
	if o.HoldExpiresAt != nil {
		t := *o.HoldExpiresAt
		c.HoldExpiresAt = &t
	}
	return &c
}

func cloneCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp
}

func clonePayments(ps []*models.Payment) []*models.Payment {
	out := make([]*models.Payment, 0, len(ps))
	for _, p := range ps {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func cloneRefunds(rs []*models.Refund) []*models.Refund {
	out := make([]*models.Refund, 0, len(rs))
	for _, r := range rs {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

// memSnapshot captures the mutable state a locked transaction may touch, so
// a callback error rolls everything back like the real stores do.
type memSnapshot struct {
	nextID   int64
	vouchers map[int64]*models.Voucher
	carts    map[int64]*models.Cart
	orders   map[int64]*models.Order
	payments map[int64][]*models.Payment
	refunds  map[int64][]*models.Refund
	credits  map[int64]*models.Credit
}

func (db *memDB) snapshot() *memSnapshot {
	s := &memSnapshot{
		nextID:   db.nextID,
		vouchers: make(map[int64]*models.Voucher, len(db.vouchers)),
		carts:    make(map[int64]*models.Cart, len(db.carts)),
		orders:   make(map[int64]*models.Order, len(db.orders)),
		payments: make(map[int64][]*models.Payment, len(db.payments)),
		refunds:  make(map[int64][]*models.Refund, len(db.refunds)),
		credits:  make(map[int64]*models.Credit, len(db.credits)),
	}
	for id, v := range db.vouchers {
		cp := *v
		s.vouchers[id] = &cp
	}
	for id, c := range db.carts {
		s.carts[id] = cloneCart(c)
	}
	for id, o := range db.orders {
		s.orders[id] = cloneOrder(o)
	}
	for id, ps := range db.payments {
		s.payments[id] = clonePayments(ps)
	}
	for id, rs := range db.refunds {
		s.refunds[id] = cloneRefunds(rs)
	}
	for id, c := range db.credits {
		cp := *c
		s.credits[id] = &cp
	}
	return s
}

func (db *memDB) restore(s *memSnapshot) {
	db.nextID = s.nextID
	db.vouchers = s.vouchers
	db.carts = s.carts
	db.orders = s.orders
	db.payments = s.payments
	db.refunds = s.refunds
	db.credits = s.credits
}

// soldTickets mirrors the committed-plus-held counting rule.
func (db *memDB) soldTickets(conferenceID int64, now time.Time) int {
	total := 0
	for _, o := range db.orders {
		if o.ConferenceID != conferenceID {
			continue
		}
		if !orderCounts(o, now) {
			continue
		}
		for _, line := range o.LineItems {
			if line.AddOnID == nil {
				total += line.Quantity
			}
		}
	}
	return total
}

func orderCounts(o *models.Order, now time.Time) bool {
	switch o.Status {
	case models.OrderPaid, models.OrderPartiallyRefunded:
		return true
	case models.OrderPending:
		return o.HoldExpiresAt != nil && o.HoldExpiresAt.After(now)
	default:
		return false
	}
}

// Conference store double.

type memConferences struct{ db *memDB }

func (m *memConferences) GetByID(ctx context.Context, id int64) (*models.Conference, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.conferences[id]
	if !ok {
		return nil, models.ErrConferenceNotFound
	}
	return c, nil
}

func (m *memConferences) GetBySlug(ctx context.Context, slug string) (*models.Conference, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, c := range m.db.conferences {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, models.ErrConferenceNotFound
}

// Catalog store double.

type memCatalog struct{ db *memDB }

func (m *memCatalog) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	t, ok := m.db.ticketTypes[id]
	if !ok {
		return nil, models.ErrItemUnavailable
	}
	return t, nil
}

func (m *memCatalog) GetAddOn(ctx context.Context, id int64) (*models.AddOn, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.addons[id]
	if !ok {
		return nil, models.ErrItemUnavailable
	}
	return a, nil
}

func (m *memCatalog) ListTicketTypes(ctx context.Context, conferenceID int64) ([]*models.TicketType, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.TicketType
	for _, t := range m.db.ticketTypes {
		if t.ConferenceID == conferenceID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memCatalog) ListAddOns(ctx context.Context, conferenceID int64) ([]*models.AddOn, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.AddOn
	for _, a := range m.db.addons {
		if a.ConferenceID == conferenceID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Voucher store double.

type memVouchers struct{ db *memDB }

func (m *memVouchers) insert(v *models.Voucher) error {
	for _, existing := range m.db.vouchers {
		if existing.ConferenceID == v.ConferenceID && existing.Code == v.Code {
			return models.ErrDuplicateEntry
		}
	}
	v.ID = m.db.id()
	cp := *v
	m.db.vouchers[v.ID] = &cp
	return nil
}

func (m *memVouchers) Create(ctx context.Context, v *models.Voucher) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.insert(v)
}

func (m *memVouchers) CreateBatch(ctx context.Context, vouchers []*models.Voucher) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, v := range vouchers {
		if err := m.insert(v); err != nil {
			return err
		}
	}
	return nil
}

func (m *memVouchers) GetByID(ctx context.Context, id int64) (*models.Voucher, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	v, ok := m.db.vouchers[id]
	if !ok {
		return nil, models.ErrVoucherInvalid
	}
	cp := *v
	return &cp, nil
}

func (m *memVouchers) GetByCode(ctx context.Context, conferenceID int64, code string) (*models.Voucher, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, v := range m.db.vouchers {
		if v.ConferenceID == conferenceID && v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, models.ErrVoucherInvalid
}

func (m *memVouchers) ExistingCodes(ctx context.Context, conferenceID int64, codes []string) (map[string]bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing := make(map[string]bool)
	for _, code := range codes {
		for _, v := range m.db.vouchers {
			if v.ConferenceID == conferenceID && v.Code == code {
				existing[code] = true
			}
		}
	}
	return existing, nil
}

func (m *memVouchers) DecrementUsage(ctx context.Context, voucherID int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	v, ok := m.db.vouchers[voucherID]
	if !ok || v.TimesUsed == 0 {
		return models.ErrVoucherInvalid
	}
	v.TimesUsed--
	return nil
}

// Cart store double.

type memCarts struct{ db *memDB }

func (m *memCarts) Create(ctx context.Context, cart *models.Cart) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cart.ID = m.db.id()
	m.db.carts[cart.ID] = cloneCart(cart)
	return nil
}

func (m *memCarts) GetByID(ctx context.Context, id int64) (*models.Cart, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.carts[id]
	if !ok {
		return nil, models.ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (m *memCarts) GetOpenCart(ctx context.Context, userID, conferenceID int64) (*models.Cart, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var latest *models.Cart
	for _, c := range m.db.carts {
		if c.UserID == userID && c.ConferenceID == conferenceID && c.Status == models.CartOpen {
			if latest == nil || c.ID > latest.ID {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, models.ErrCartNotFound
	}
	return cloneCart(latest), nil
}

func (m *memCarts) UpsertItem(ctx context.Context, item *models.CartItem) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cart, ok := m.db.carts[item.CartID]
	if !ok {
		return models.ErrCartNotFound
	}
	for i := range cart.Items {
		existing := &cart.Items[i]
		sameTicket := existing.TicketTypeID != nil && item.TicketTypeID != nil && *existing.TicketTypeID == *item.TicketTypeID
		sameAddOn := existing.AddOnID != nil && item.AddOnID != nil && *existing.AddOnID == *item.AddOnID
		if sameTicket || sameAddOn {
			existing.Quantity += item.Quantity
			item.ID = existing.ID
			item.Quantity = existing.Quantity
			return nil
		}
	}
	item.ID = m.db.id()
	cart.Items = append(cart.Items, *item)
	return nil
}

func (m *memCarts) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, cart := range m.db.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				if quantity <= 0 {
					cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				} else {
					cart.Items[i].Quantity = quantity
				}
				return nil
			}
		}
	}
	return models.ErrCartNotFound
}

func (m *memCarts) RemoveItem(ctx context.Context, itemID int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, cart := range m.db.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return models.ErrCartNotFound
}

func (m *memCarts) SetVoucher(ctx context.Context, cartID int64, voucherID *int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cart, ok := m.db.carts[cartID]
	if !ok {
		return models.ErrCartNotFound
	}
	cart.VoucherID = voucherID
	return nil
}

func (m *memCarts) Touch(ctx context.Context, cartID int64, expiresAt time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cart, ok := m.db.carts[cartID]
	if !ok {
		return models.ErrCartNotFound
	}
	cart.ExpiresAt = expiresAt
	return nil
}

func (m *memCarts) SetStatus(ctx context.Context, cartID int64, status models.CartStatus) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cart, ok := m.db.carts[cartID]
	if !ok {
		return models.ErrCartNotFound
	}
	cart.Status = status
	return nil
}

// Order store double.

type memOrders struct{ db *memDB }

func (m *memOrders) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	o, ok := m.db.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *memOrders) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, o := range m.db.orders {
		if o.Reference == reference {
			return cloneOrder(o), nil
		}
	}
	return nil, models.ErrOrderNotFound
}

func (m *memOrders) ListByUser(ctx context.Context, userID, conferenceID int64) ([]*models.Order, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Order
	for _, o := range m.db.orders {
		if o.UserID == userID && o.ConferenceID == conferenceID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memOrders) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Order, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Order
	for _, o := range m.db.orders {
		if o.Status == models.OrderPending && o.HoldExpiresAt != nil && !o.HoldExpiresAt.After(now) {
			out = append(out, cloneOrder(o))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memOrders) PaidTicketQuantity(ctx context.Context, userID, ticketTypeID int64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	total := 0
	for _, o := range m.db.orders {
		if o.UserID != userID {
			continue
		}
		if o.Status != models.OrderPaid && o.Status != models.OrderPartiallyRefunded {
			continue
		}
		for _, line := range o.LineItems {
			if line.TicketTypeID != nil && *line.TicketTypeID == ticketTypeID {
				total += line.Quantity
			}
		}
	}
	return total, nil
}

func (m *memOrders) PaidAddOnQuantity(ctx context.Context, userID, addonID int64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	total := 0
	for _, o := range m.db.orders {
		if o.UserID != userID {
			continue
		}
		if o.Status != models.OrderPaid && o.Status != models.OrderPartiallyRefunded {
			continue
		}
		for _, line := range o.LineItems {
			if line.AddOnID != nil && *line.AddOnID == addonID {
				total += line.Quantity
			}
		}
	}
	return total, nil
}

func (m *memOrders) SoldQuantityByTicketType(ctx context.Context, conferenceID int64, now time.Time) (map[int64]int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	counts := make(map[int64]int)
	for _, o := range m.db.orders {
		if o.ConferenceID != conferenceID || !orderCounts(o, now) {
			continue
		}
		for _, line := range o.LineItems {
			if line.TicketTypeID != nil {
				counts[*line.TicketTypeID] += line.Quantity
			}
		}
	}
	return counts, nil
}

func (m *memOrders) SoldQuantityByAddOn(ctx context.Context, conferenceID int64, now time.Time) (map[int64]int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	counts := make(map[int64]int)
	for _, o := range m.db.orders {
		if o.ConferenceID != conferenceID || !orderCounts(o, now) {
			continue
		}
		for _, line := range o.LineItems {
			if line.AddOnID != nil {
				counts[*line.AddOnID] += line.Quantity
			}
		}
	}
	return counts, nil
}

// Payment reader double.

type memPayments struct{ db *memDB }

func (m *memPayments) ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return clonePayments(m.db.payments[orderID]), nil
}

func (m *memPayments) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, ps := range m.db.payments {
		for _, p := range ps {
			if p.IntentID == intentID {
				cp := *p
				return &cp, nil
			}
		}
	}
	return nil, models.ErrNoGatewayPayment
}

// Credit store double.

type memCredits struct{ db *memDB }

func (m *memCredits) GetByID(ctx context.Context, id int64) (*models.Credit, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.credits[id]
	if !ok {
		return nil, models.ErrCreditNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCredits) ListByUser(ctx context.Context, userID, conferenceID int64) ([]*models.Credit, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Credit
	for _, c := range m.db.credits {
		if c.UserID == userID && c.ConferenceID == conferenceID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Customer store double.

type memCustomers struct{ db *memDB }

func (m *memCustomers) Get(ctx context.Context, userID, conferenceID int64) (string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.customers[[2]int64{userID, conferenceID}], nil
}

func (m *memCustomers) Save(ctx context.Context, gc *models.GatewayCustomer) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	key := [2]int64{gc.UserID, gc.ConferenceID}
	if _, ok := m.db.customers[key]; !ok {
		m.db.customers[key] = gc.CustomerID
	}
	return nil
}

// User store double.

type memUsers struct{ db *memDB }

func (m *memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	user.ID = m.db.id()
	m.db.users[user.ID] = user
	return nil
}

// Sponsor store double.

type memSponsors struct{ db *memDB }

func (m *memSponsors) Upsert(ctx context.Context, s *models.Sponsor) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	key := [2]int64{s.ConferenceID, s.UpstreamID}
	if existing, ok := m.db.sponsors[key]; ok {
		s.ID = existing.ID
		cp := *s
		m.db.sponsors[key] = &cp
		return false, nil
	}
	s.ID = m.db.id()
	cp := *s
	m.db.sponsors[key] = &cp
	return true, nil
}

func (m *memSponsors) ListByConference(ctx context.Context, conferenceID int64) ([]*models.Sponsor, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Sponsor
	for _, s := range m.db.sponsors {
		if s.ConferenceID == conferenceID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Checkout locker double. The mutex serializes callbacks and the snapshot
// gives callback errors transaction semantics.

type memCheckoutLocker struct{ db *memDB }

func (m *memCheckoutLocker) WithConferenceLock(ctx context.Context, conferenceID int64, fn func(repositories.CheckoutTx) error) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.conferences[conferenceID]; !ok {
		return models.ErrConferenceNotFound
	}
	snap := m.db.snapshot()
	if err := fn(&memCheckoutTx{db: m.db, conferenceID: conferenceID}); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

type memCheckoutTx struct {
	db           *memDB
	conferenceID int64
}

func (t *memCheckoutTx) Capacity(ctx context.Context) (int, error) {
	conf, ok := t.db.conferences[t.conferenceID]
	if !ok {
		return 0, models.ErrConferenceNotFound
	}
	return conf.TotalCapacity, nil
}

func (t *memCheckoutTx) SoldTicketCount(ctx context.Context, now time.Time) (int, error) {
	return t.db.soldTickets(t.conferenceID, now), nil
}

func (t *memCheckoutTx) InsertOrder(ctx context.Context, order *models.Order) error {
	order.ID = t.db.id()
	for i := range order.LineItems {
		order.LineItems[i].ID = t.db.id()
		order.LineItems[i].OrderID = order.ID
	}
	t.db.orders[order.ID] = cloneOrder(order)
	return nil
}

func (t *memCheckoutTx) IncrementVoucherUse(ctx context.Context, voucherID int64) error {
	v, ok := t.db.vouchers[voucherID]
	if !ok {
		return models.ErrVoucherInvalid
	}
	if v.TimesUsed >= v.MaxUses {
		return models.ErrVoucherExhausted
	}
	v.TimesUsed++
	return nil
}

func (t *memCheckoutTx) MarkCartCheckedOut(ctx context.Context, cartID int64) error {
	cart, ok := t.db.carts[cartID]
	if !ok || cart.Status != models.CartOpen {
		return models.ErrCartNotFound
	}
	cart.Status = models.CartCheckedOut
	return nil
}

// Payment locker double.

type memPaymentLocker struct{ db *memDB }

func (m *memPaymentLocker) WithOrderLock(ctx context.Context, orderID int64, fn func(repositories.OrderTx) error) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.orders[orderID]; !ok {
		return models.ErrOrderNotFound
	}
	snap := m.db.snapshot()
	if err := fn(&memOrderTx{db: m.db, orderID: orderID}); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

func (m *memPaymentLocker) WithCreditAndOrderLock(ctx context.Context, creditID, orderID int64, fn func(repositories.CreditTx) error) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.credits[creditID]; !ok {
		return models.ErrCreditNotFound
	}
	if _, ok := m.db.orders[orderID]; !ok {
		return models.ErrOrderNotFound
	}
	snap := m.db.snapshot()
	tx := &memCreditTx{memOrderTx: &memOrderTx{db: m.db, orderID: orderID}, creditID: creditID}
	if err := fn(tx); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

type memOrderTx struct {
	db      *memDB
	orderID int64
}

func (t *memOrderTx) Order(ctx context.Context) (*models.Order, error) {
	o, ok := t.db.orders[t.orderID]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (t *memOrderTx) Payments(ctx context.Context) ([]*models.Payment, error) {
	return clonePayments(t.db.payments[t.orderID]), nil
}

func (t *memOrderTx) InsertPayment(ctx context.Context, p *models.Payment) error {
	p.ID = t.db.id()
	p.OrderID = t.orderID
	cp := *p
	t.db.payments[t.orderID] = append(t.db.payments[t.orderID], &cp)
	return nil
}

func (t *memOrderTx) SetPaymentStatus(ctx context.Context, paymentID int64, status models.PaymentStatus) error {
	for _, p := range t.db.payments[t.orderID] {
		if p.ID == paymentID {
			p.Status = status
			return nil
		}
	}
	return fmt.Errorf("payment %d not found", paymentID)
}

func (t *memOrderTx) SetOrderStatus(ctx context.Context, status models.OrderStatus, clearHold bool) error {
	o := t.db.orders[t.orderID]
	o.Status = status
	if clearHold {
		o.HoldExpiresAt = nil
	}
	return nil
}

func (t *memOrderTx) RefundedTotal(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range t.db.refunds[t.orderID] {
		total = total.Add(r.Amount)
	}
	return total, nil
}

func (t *memOrderTx) InsertRefund(ctx context.Context, r *models.Refund) error {
	r.ID = t.db.id()
	r.OrderID = t.orderID
	cp := *r
	t.db.refunds[t.orderID] = append(t.db.refunds[t.orderID], &cp)
	return nil
}

func (t *memOrderTx) InsertCredit(ctx context.Context, c *models.Credit) error {
	c.ID = t.db.id()
	cp := *c
	t.db.credits[c.ID] = &cp
	return nil
}

func (t *memOrderTx) DecrementVoucherUse(ctx context.Context, voucherID int64) error {
	v, ok := t.db.vouchers[voucherID]
	if !ok {
		return models.ErrVoucherInvalid
	}
	if v.TimesUsed > 0 {
		v.TimesUsed--
	}
	return nil
}

type memCreditTx struct {
	*memOrderTx
	creditID int64
}

func (t *memCreditTx) Credit(ctx context.Context) (*models.Credit, error) {
	c, ok := t.db.credits[t.creditID]
	if !ok {
		return nil, models.ErrCreditNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *memCreditTx) UpdateCredit(ctx context.Context, c *models.Credit) error {
	stored, ok := t.db.credits[c.ID]
	if !ok {
		return models.ErrCreditNotFound
	}
	stored.Status = c.Status
	stored.RemainingAmount = c.RemainingAmount
	stored.AppliedOrderID = c.AppliedOrderID
	return nil
}

// captureNotifier records order lifecycle notifications.
type captureNotifier struct {
	mu       sync.Mutex
	paid     []string
	refunded []string
}

func (n *captureNotifier) OrderPaid(ctx context.Context, order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, order.Reference)
}

func (n *captureNotifier) OrderRefunded(ctx context.Context, order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunded = append(n.refunded, order.Reference)
}

func (n *captureNotifier) paidCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.paid)
}

// env wires the services against the in-memory doubles.
type env struct {
	db *memDB

	conferences *memConferences
	catalog     *memCatalog
	voucherRepo *memVouchers
	cartRepo    *memCarts
	orderRepo   *memOrders
	paymentRepo *memPayments
	creditRepo  *memCredits

	gateway  *MockGateway
	notifier *captureNotifier

	carts    *CartService
	checkout *CheckoutService
	payments *PaymentService
	refunds  *RefundService
	vouchers *VoucherService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := newMemDB()
	e := &env{
		db:          db,
		conferences: &memConferences{db: db},
		catalog:     &memCatalog{db: db},
		voucherRepo: &memVouchers{db: db},
		cartRepo:    &memCarts{db: db},
		orderRepo:   &memOrders{db: db},
		paymentRepo: &memPayments{db: db},
		creditRepo:  &memCredits{db: db},
		gateway:     NewMockGateway(),
		notifier:    &captureNotifier{},
	}

	checkoutLocker := &memCheckoutLocker{db: db}
	paymentLocker := &memPaymentLocker{db: db}
	gatewayFor := func(string) Gateway { return e.gateway }

	e.vouchers = NewVoucherService(e.voucherRepo)
	e.carts = NewCartService(e.cartRepo, e.catalog, e.voucherRepo, e.orderRepo, e.conferences, 2*time.Hour)
	e.checkout = NewCheckoutService(checkoutLocker, e.carts, e.cartRepo, e.conferences, e.catalog, e.voucherRepo, e.orderRepo, paymentLocker)
	e.payments = NewPaymentService(paymentLocker, e.paymentRepo, e.orderRepo, e.conferences, &memCustomers{db: db}, &memUsers{db: db}, gatewayFor, e.notifier)
	e.refunds = NewRefundService(paymentLocker, e.orderRepo, e.conferences, gatewayFor, e.notifier)

	return e
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *env) addConference(slug string, capacity int) *models.Conference {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	c := &models.Conference{
		ID:                     e.db.id(),
		Slug:                   slug,
		Name:                   slug,
		Currency:               "USD",
		TotalCapacity:          capacity,
		PendingOrderExpiryMins: 30,
		StripeSecretKey:        "sk_test_fixture",
		StartDate:              time.Now().AddDate(0, 1, 0),
		EndDate:                time.Now().AddDate(0, 1, 3),
	}
	e.db.conferences[c.ID] = c
	return c
}

func (e *env) addUser(email string) *models.User {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	u := &models.User{ID: e.db.id(), Email: email, Name: "Test User", Role: models.RoleAttendee}
	e.db.users[u.ID] = u
	return u
}

func (e *env) addTicketType(conferenceID int64, name, price string, totalQty, limitPerUser int, hidden bool) *models.TicketType {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	t := &models.TicketType{
		ID:            e.db.id(),
		ConferenceID:  conferenceID,
		Name:          name,
		Price:         dec(price),
		TotalQuantity: totalQty,
		LimitPerUser:  limitPerUser,
		Active:        true,
		Hidden:        hidden,
	}
	e.db.ticketTypes[t.ID] = t
	return t
}

func (e *env) addAddOn(conferenceID int64, name, price string, totalQty int, required []int64) *models.AddOn {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	a := &models.AddOn{
		ID:                    e.db.id(),
		ConferenceID:          conferenceID,
		Name:                  name,
		Price:                 dec(price),
		TotalQuantity:         totalQty,
		Active:                true,
		RequiredTicketTypeIDs: required,
	}
	e.db.addons[a.ID] = a
	return a
}

func (e *env) addVoucher(v *models.Voucher) *models.Voucher {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	v.ID = e.db.id()
	v.Active = true
	e.db.vouchers[v.ID] = v
	return v
}

// seedOrder inserts an order with a single ticket line covering the whole
// total.
func (e *env) seedOrder(userID, conferenceID int64, status models.OrderStatus, total string, ticketTypeID int64, qty int) *models.Order {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	amount := dec(total)
	o := &models.Order{
		ID:           e.db.id(),
		ConferenceID: conferenceID,
		UserID:       userID,
		Reference:    models.GenerateOrderReference(),
		Status:       status,
		Subtotal:     amount,
		Total:        amount,
		BillingName:  "Test User",
		BillingEmail: "test@example.com",
		LineItems: []models.OrderLineItem{{
			Description:  "Ticket",
			Quantity:     qty,
			UnitPrice:    amount.Div(decimal.NewFromInt(int64(qty))),
			LineTotal:    amount,
			TicketTypeID: &ticketTypeID,
		}},
	}
	if status == models.OrderPending {
		hold := time.Now().Add(30 * time.Minute)
		o.HoldExpiresAt = &hold
	}
	e.db.orders[o.ID] = o
	return cloneOrder(o)
}

func (e *env) seedPayment(orderID int64, method models.PaymentMethod, status models.PaymentStatus, amount, intentID string) *models.Payment {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	p := &models.Payment{
		ID:       e.db.id(),
		OrderID:  orderID,
		Method:   method,
		Status:   status,
		Amount:   dec(amount),
		IntentID: intentID,
	}
	e.db.payments[orderID] = append(e.db.payments[orderID], p)
	cp := *p
	return &cp
}

func (e *env) seedCredit(userID, conferenceID int64, amount string) *models.Credit {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	c := &models.Credit{
		ID:              e.db.id(),
		UserID:          userID,
		ConferenceID:    conferenceID,
		Status:          models.CreditAvailable,
		Amount:          dec(amount),
		RemainingAmount: dec(amount),
	}
	e.db.credits[c.ID] = c
	cp := *c
	return &cp
}

func (e *env) order(t *testing.T, id int64) *models.Order {
	t.Helper()
	o, err := e.orderRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get order %d: %v", id, err)
	}
	return o
}

func (e *env) voucher(t *testing.T, id int64) *models.Voucher {
	t.Helper()
	v, err := e.voucherRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get voucher %d: %v", id, err)
	}
	return v
}
