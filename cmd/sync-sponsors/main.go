// Command sync-sponsors pulls the sponsor directory feed for a conference
// and issues complimentary ticket vouchers for sponsor allocations.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"conference-registration-platform/internal/config"
	"conference-registration-platform/internal/database"
	"conference-registration-platform/internal/repositories"
	"conference-registration-platform/internal/services"
)

func main() {
	conferenceID := flag.Int64("conference", 0, "conference ID (required)")
	flag.Parse()

	if *conferenceID == 0 {
		log.Fatal("-conference is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Sponsors.FeedURL == "" {
		log.Fatal("SPONSOR_FEED_URL must be set")
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	feed := services.NewSponsorFeedClient(cfg.Sponsors.FeedURL, cfg.Sponsors.Timeout)
	voucherSvc := services.NewVoucherService(repositories.NewVoucherRepository(db.DB))
	syncSvc := services.NewSponsorSyncService(feed, repositories.NewSponsorRepository(db.DB), voucherSvc)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := syncSvc.Sync(ctx, *conferenceID)
	if err != nil {
		log.Fatalf("sponsor sync failed: %v", err)
	}

	log.Printf("synced %d sponsors, issued %d comp vouchers", result.Synced, result.VouchersIssued)
}
