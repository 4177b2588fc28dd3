package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
)

const (
	voucherCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	voucherCodeLength   = 8
	maxBatchSize        = 500
	maxCodeRetries      = 100
)

// VoucherService manages voucher creation, batch generation and validation
type VoucherService struct {
	vouchers VoucherStore
}

// NewVoucherService creates a new voucher service
func NewVoucherService(vouchers VoucherStore) *VoucherService {
	return &VoucherService{vouchers: vouchers}
}

// Create creates a single voucher after validation
func (s *VoucherService) Create(ctx context.Context, v *models.Voucher) error {
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))
	if err := v.Validate(); err != nil {
		return err
	}
	return s.vouchers.Create(ctx, v)
}

// BatchRequest describes a batch of vouchers to generate. Every generated
// voucher shares the template fields and gets a unique random code.
type BatchRequest struct {
	ConferenceID         int64
	Count                int
	Prefix               string
	Type                 models.VoucherType
	DiscountValue        decimal.Decimal
	MaxUses              int
	ValidFrom            *time.Time
	ValidUntil           *time.Time
	UnlocksHiddenTickets bool
	TicketTypeIDs        []int64
	AddOnIDs             []int64
}

// GenerateBatch generates Count vouchers with unique random codes. Codes are
// the upper-cased prefix followed by eight random characters. Generation is
// all-or-nothing: a collision that cannot be resolved within the retry
// budget fails the whole batch.
func (s *VoucherService) GenerateBatch(ctx context.Context, req BatchRequest) ([]*models.Voucher, error) {
	if req.Count < 1 || req.Count > maxBatchSize {
		return nil, models.ErrInvalidCount
	}

	prefix := strings.ToUpper(strings.TrimSpace(req.Prefix))

	codes := make([]string, 0, req.Count)
	seen := make(map[string]bool, req.Count)
	// The retry budget is per code, not per batch: a large batch may see
	// many scattered collisions without any single code being hard to
	// place. attempts is indexed by the batch slot a candidate would fill.
	attempts := make([]int, req.Count)
	for len(codes) < req.Count {
		candidates := make([]string, 0, req.Count-len(codes))
		for len(candidates) < req.Count-len(codes) {
			code, err := randomCode(prefix)
			if err != nil {
				return nil, err
			}
			if seen[code] {
				continue
			}
			seen[code] = true
			candidates = append(candidates, code)
		}

		existing, err := s.vouchers.ExistingCodes(ctx, req.ConferenceID, candidates)
		if err != nil {
			return nil, err
		}

		base := len(codes)
		for i, code := range candidates {
			if existing[code] {
				delete(seen, code)
				attempts[base+i]++
				if attempts[base+i] >= maxCodeRetries {
					return nil, models.ErrCodeGenerationExhausted
				}
				continue
			}
			codes = append(codes, code)
		}
	}

	vouchers := make([]*models.Voucher, 0, req.Count)
	for _, code := range codes {
		v := &models.Voucher{
			ConferenceID:         req.ConferenceID,
			Code:                 code,
			Type:                 req.Type,
			DiscountValue:        req.DiscountValue,
			MaxUses:              req.MaxUses,
			ValidFrom:            req.ValidFrom,
			ValidUntil:           req.ValidUntil,
			UnlocksHiddenTickets: req.UnlocksHiddenTickets,
			Active:               true,
			TicketTypeIDs:        req.TicketTypeIDs,
			AddOnIDs:             req.AddOnIDs,
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}

	if err := s.vouchers.CreateBatch(ctx, vouchers); err != nil {
		return nil, err
	}

	return vouchers, nil
}

func randomCode(prefix string) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)

	max := big.NewInt(int64(len(voucherCodeAlphabet)))
	for i := 0; i < voucherCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate voucher code: %w", err)
		}
		b.WriteByte(voucherCodeAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// Redeemable looks up a voucher by code and verifies it can currently be
// redeemed. Returns models.ErrVoucherInvalid for unknown, inactive or
// out-of-window codes and models.ErrVoucherExhausted for used-up ones.
func (s *VoucherService) Redeemable(ctx context.Context, conferenceID int64, code string) (*models.Voucher, error) {
	v, err := s.vouchers.GetByCode(ctx, conferenceID, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}

	if v.IsExhausted() {
		return nil, models.ErrVoucherExhausted
	}
	if !v.IsRedeemable(time.Now()) {
		return nil, models.ErrVoucherInvalid
	}

	return v, nil
}

// IssueSponsorComps issues single-use comp vouchers for a sponsor's
// complimentary ticket allocation. The vouchers unlock hidden ticket types,
// so allocations can point at an unlisted sponsor ticket. Codes follow
// SPONSOR-{SLUG}-{N} and the operation is idempotent: codes that already
// exist are skipped, so re-running a sponsor sync never duplicates vouchers.
func (s *VoucherService) IssueSponsorComps(ctx context.Context, sponsor *models.Sponsor) ([]*models.Voucher, error) {
	if sponsor.CompTicketCount <= 0 {
		return nil, nil
	}

	slug := strings.ToUpper(sponsor.Slug)
	codes := make([]string, 0, sponsor.CompTicketCount)
	for i := 1; i <= sponsor.CompTicketCount; i++ {
		codes = append(codes, fmt.Sprintf("SPONSOR-%s-%d", slug, i))
	}

	existing, err := s.vouchers.ExistingCodes(ctx, sponsor.ConferenceID, codes)
	if err != nil {
		return nil, err
	}

	var vouchers []*models.Voucher
	for _, code := range codes {
		if existing[code] {
			continue
		}
		vouchers = append(vouchers, &models.Voucher{
			ConferenceID:         sponsor.ConferenceID,
			Code:                 code,
			Type:                 models.VoucherComp,
			MaxUses:              1,
			UnlocksHiddenTickets: true,
			Active:               true,
		})
	}

	if len(vouchers) == 0 {
		return nil, nil
	}

	if err := s.vouchers.CreateBatch(ctx, vouchers); err != nil {
		return nil, err
	}

	return vouchers, nil
}
