// Command sync-schedule pulls rooms, speakers and talks for a conference
// from the Pretalx API into the local schedule tables.
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
	eventSlug := flag.String("event", "", "Pretalx event slug (required)")
	flag.Parse()

	if *conferenceID == 0 || *eventSlug == "" {
		log.Fatal("-conference and -event are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
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

	client := services.NewPretalxClient(cfg.Pretalx.BaseURL, cfg.Pretalx.APIToken, cfg.Pretalx.Timeout)
	syncSvc := services.NewScheduleSyncService(client, repositories.NewScheduleRepository(db.DB))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := syncSvc.Sync(ctx, *conferenceID, *eventSlug)
	if err != nil {
		log.Fatalf("schedule sync failed: %v", err)
	}

	log.Printf("synced %d rooms, %d speakers, %d talks", result.Rooms, result.Speakers, result.Talks)
}
