// Command expire-orders cancels pending orders whose payment hold has
// lapsed and releases their voucher usage. Intended to run from cron.
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
	limit := flag.Int("limit", 500, "maximum number of orders to expire in one run")
	flag.Parse()

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

	cartRepo := repositories.NewCartRepository(db.DB)
	conferenceRepo := repositories.NewConferenceRepository(db.DB)
	catalogRepo := repositories.NewTicketTypeRepository(db.DB)
	voucherRepo := repositories.NewVoucherRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	checkoutStore := repositories.NewCheckoutStore(db.DB)
	paymentStore := repositories.NewPaymentStore(db.DB)

	cartSvc := services.NewCartService(cartRepo, catalogRepo, voucherRepo, orderRepo, conferenceRepo, cfg.Registration.CartTTL)
	checkoutSvc := services.NewCheckoutService(checkoutStore, cartSvc, cartRepo, conferenceRepo, catalogRepo, voucherRepo, orderRepo, paymentStore)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := checkoutSvc.ExpireStalePendingOrders(ctx, *limit)
	if err != nil {
		log.Fatalf("failed to expire pending orders: %v", err)
	}

	staleCarts, err := cartRepo.ExpireStale(ctx, time.Now())
	if err != nil {
		log.Fatalf("failed to expire stale carts: %v", err)
	}

	log.Printf("expired %d pending orders and %d stale carts", expired, staleCarts)
}
