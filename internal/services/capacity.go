package services

import (
	"context"
	"time"

	"conference-registration-platform/internal/models"
)

// CapacityService answers availability questions for a conference and its
// catalog. Its numbers are advisory: the authoritative check happens under
// the conference lock at checkout.
type CapacityService struct {
	conferences ConferenceStore
	catalog     CatalogStore
	orders      OrderStore
}

// NewCapacityService creates a new capacity service
func NewCapacityService(conferences ConferenceStore, catalog CatalogStore, orders OrderStore) *CapacityService {
	return &CapacityService{
		conferences: conferences,
		catalog:     catalog,
		orders:      orders,
	}
}

// ConferenceAvailability reports remaining venue capacity. Sold counts
// include paid and partially refunded orders plus pending orders whose
// capacity hold is still live. Limited is false for unlimited venues.
type ConferenceAvailability struct {
	Limited   bool `json:"limited"`
	Capacity  int  `json:"capacity,omitempty"`
	Sold      int  `json:"sold"`
	Remaining int  `json:"remaining,omitempty"`
}

// ConferenceAvailability computes remaining venue capacity for a conference
func (s *CapacityService) ConferenceAvailability(ctx context.Context, conferenceID int64) (*ConferenceAvailability, error) {
	conf, err := s.conferences.GetByID(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	sold, err := s.soldTickets(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	avail := &ConferenceAvailability{Sold: sold}
	if conf.HasCapacityLimit() {
		avail.Limited = true
		avail.Capacity = conf.TotalCapacity
		avail.Remaining = conf.TotalCapacity - sold
		if avail.Remaining < 0 {
			avail.Remaining = 0
		}
	}

	return avail, nil
}

func (s *CapacityService) soldTickets(ctx context.Context, conferenceID int64) (int, error) {
	counts, err := s.orders.SoldQuantityByTicketType(ctx, conferenceID, time.Now())
	if err != nil {
		return 0, err
	}

	total := 0
	for _, qty := range counts {
		total += qty
	}
	return total, nil
}

// ItemAvailability reports remaining stock for one ticket type or add-on
type ItemAvailability struct {
	Limited   bool `json:"limited"`
	Quantity  int  `json:"quantity,omitempty"`
	Sold      int  `json:"sold"`
	Remaining int  `json:"remaining,omitempty"`
}

// TicketTypeAvailability computes remaining stock for a ticket type. The
// per-type quota and the venue cap are independent limits; the effective
// remaining is the smaller of the two.
func (s *CapacityService) TicketTypeAvailability(ctx context.Context, ticketTypeID int64) (*ItemAvailability, error) {
	t, err := s.catalog.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	counts, err := s.orders.SoldQuantityByTicketType(ctx, t.ConferenceID, time.Now())
	if err != nil {
		return nil, err
	}
	sold := counts[t.ID]

	avail := &ItemAvailability{Sold: sold}
	if t.TotalQuantity > 0 {
		avail.Limited = true
		avail.Quantity = t.TotalQuantity
		avail.Remaining = t.TotalQuantity - sold
		if avail.Remaining < 0 {
			avail.Remaining = 0
		}
	}

	conf, err := s.conferences.GetByID(ctx, t.ConferenceID)
	if err != nil {
		return nil, err
	}
	if conf.HasCapacityLimit() {
		venueSold, err := s.soldTickets(ctx, t.ConferenceID)
		if err != nil {
			return nil, err
		}
		venueRemaining := conf.TotalCapacity - venueSold
		if venueRemaining < 0 {
			venueRemaining = 0
		}
		if !avail.Limited || venueRemaining < avail.Remaining {
			avail.Limited = true
			avail.Remaining = venueRemaining
		}
	}

	return avail, nil
}

// AddOnAvailability computes remaining stock for an add-on. Add-ons never
// consume venue capacity.
func (s *CapacityService) AddOnAvailability(ctx context.Context, addonID int64) (*ItemAvailability, error) {
	a, err := s.catalog.GetAddOn(ctx, addonID)
	if err != nil {
		return nil, err
	}

	counts, err := s.orders.SoldQuantityByAddOn(ctx, a.ConferenceID, time.Now())
	if err != nil {
		return nil, err
	}
	sold := counts[a.ID]

	avail := &ItemAvailability{Sold: sold}
	if a.TotalQuantity > 0 {
		avail.Limited = true
		avail.Quantity = a.TotalQuantity
		avail.Remaining = a.TotalQuantity - sold
		if avail.Remaining < 0 {
			avail.Remaining = 0
		}
	}

	return avail, nil
}

// CheckStock verifies that requested additional quantity fits the item's
// remaining stock. Used on cart mutations for early feedback.
func CheckStock(totalQuantity, sold, inCart, requested int) error {
	if totalQuantity <= 0 {
		return nil
	}
	if sold+inCart+requested > totalQuantity {
		return models.ErrInsufficientInventory
	}
	return nil
}
