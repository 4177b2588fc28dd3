package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"conference-registration-platform/internal/models"
)

// SponsorFeedClient fetches the external sponsor directory feed
type SponsorFeedClient struct {
	feedURL string
	client  *http.Client
}

// NewSponsorFeedClient creates a new sponsor feed client
func NewSponsorFeedClient(feedURL string, timeout time.Duration) *SponsorFeedClient {
	return &SponsorFeedClient{
		feedURL: feedURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FeedSponsor is one sponsor entry as the feed returns it
type FeedSponsor struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Level       string `json:"level"`
	URL         string `json:"url"`
	LogoURL     string `json:"logo_url"`
	CompTickets int    `json:"comp_tickets"`
}

// Fetch retrieves the sponsor feed
func (c *SponsorFeedClient) Fetch(ctx context.Context) ([]FeedSponsor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sponsor feed request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sponsor feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sponsor feed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sponsor feed returned status %d", resp.StatusCode)
	}

	var sponsors []FeedSponsor
	if err := json.Unmarshal(body, &sponsors); err != nil {
		return nil, fmt.Errorf("failed to decode sponsor feed: %w", err)
	}

	return sponsors, nil
}

// SponsorFeed abstracts the sponsor directory for tests
type SponsorFeed interface {
	Fetch(ctx context.Context) ([]FeedSponsor, error)
}

// SponsorSyncService mirrors the sponsor directory into the local sponsors
// table and issues complimentary ticket vouchers for sponsor allocations.
// Both halves are idempotent, so re-running a sync is always safe.
type SponsorSyncService struct {
	feed     SponsorFeed
	sponsors SponsorStore
	vouchers *VoucherService
}

// NewSponsorSyncService creates a new sponsor sync service
func NewSponsorSyncService(feed SponsorFeed, sponsors SponsorStore, vouchers *VoucherService) *SponsorSyncService {
	return &SponsorSyncService{
		feed:     feed,
		sponsors: sponsors,
		vouchers: vouchers,
	}
}

// SponsorSyncResult summarizes one sponsor sync run
type SponsorSyncResult struct {
	Synced         int `json:"synced"`
	VouchersIssued int `json:"vouchers_issued"`
}

// Sync pulls the sponsor feed, upserts each sponsor, and issues any missing
// comp vouchers for sponsors with a complimentary ticket allocation
func (s *SponsorSyncService) Sync(ctx context.Context, conferenceID int64) (*SponsorSyncResult, error) {
	feed, err := s.feed.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	result := &SponsorSyncResult{}
	for _, entry := range feed {
		sponsor := &models.Sponsor{
			ConferenceID:    conferenceID,
			UpstreamID:      entry.ID,
			Slug:            entry.Slug,
			Name:            entry.Name,
			Level:           entry.Level,
			URL:             entry.URL,
			LogoURL:         entry.LogoURL,
			CompTicketCount: entry.CompTickets,
		}
		if err := sponsor.Validate(); err != nil {
			return nil, fmt.Errorf("invalid sponsor %q: %w", entry.Slug, err)
		}

		if _, err := s.sponsors.Upsert(ctx, sponsor); err != nil {
			return nil, err
		}
		result.Synced++

		issued, err := s.vouchers.IssueSponsorComps(ctx, sponsor)
		if err != nil {
			return nil, err
		}
		result.VouchersIssued += len(issued)
	}

	return result, nil
}
