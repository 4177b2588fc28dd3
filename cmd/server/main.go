package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"conference-registration-platform/internal/config"
	"conference-registration-platform/internal/database"
	"conference-registration-platform/internal/handlers"
	"conference-registration-platform/internal/repositories"
	"conference-registration-platform/internal/services"
)

func main() {
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

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db.DB)
	conferenceRepo := repositories.NewConferenceRepository(db.DB)
	catalogRepo := repositories.NewTicketTypeRepository(db.DB)
	voucherRepo := repositories.NewVoucherRepository(db.DB)
	cartRepo := repositories.NewCartRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	paymentRepo := repositories.NewPaymentRepository(db.DB)
	creditRepo := repositories.NewCreditRepository(db.DB)
	customerRepo := repositories.NewGatewayCustomerRepository(db.DB)
	scheduleRepo := repositories.NewScheduleRepository(db.DB)
	sponsorRepo := repositories.NewSponsorRepository(db.DB)
	checkoutStore := repositories.NewCheckoutStore(db.DB)
	paymentStore := repositories.NewPaymentStore(db.DB)

	// Services
	var gatewayFor services.GatewayFactory
	if cfg.IsProduction() || os.Getenv("USE_MOCK_GATEWAY") != "true" {
		gatewayFor = services.NewStripeGatewayFactory(cfg.Stripe.BaseURL, cfg.Stripe.Timeout)
	} else {
		mock := services.NewMockGateway()
		gatewayFor = func(string) services.Gateway { return mock }
		log.Println("using mock payment gateway")
	}

	notifier := services.NewLogNotifier()
	capacitySvc := services.NewCapacityService(conferenceRepo, catalogRepo, orderRepo)
	voucherSvc := services.NewVoucherService(voucherRepo)
	cartSvc := services.NewCartService(cartRepo, catalogRepo, voucherRepo, orderRepo, conferenceRepo, cfg.Registration.CartTTL)
	checkoutSvc := services.NewCheckoutService(checkoutStore, cartSvc, cartRepo, conferenceRepo, catalogRepo, voucherRepo, orderRepo, paymentStore)
	paymentSvc := services.NewPaymentService(paymentStore, paymentRepo, orderRepo, conferenceRepo, customerRepo, userRepo, gatewayFor, notifier)
	refundSvc := services.NewRefundService(paymentStore, orderRepo, conferenceRepo, gatewayFor, notifier)

	pretalxClient := services.NewPretalxClient(cfg.Pretalx.BaseURL, cfg.Pretalx.APIToken, cfg.Pretalx.Timeout)
	scheduleSyncSvc := services.NewScheduleSyncService(pretalxClient, scheduleRepo)
	sponsorFeed := services.NewSponsorFeedClient(cfg.Sponsors.FeedURL, cfg.Sponsors.Timeout)
	sponsorSyncSvc := services.NewSponsorSyncService(sponsorFeed, sponsorRepo, voucherSvc)

	// Handlers
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:    handlers.NewAuthHandler(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry),
		Public:  handlers.NewPublicHandler(conferenceRepo, catalogRepo, capacitySvc, scheduleRepo, sponsorRepo),
		Cart:    handlers.NewCartHandler(conferenceRepo, cartSvc),
		Order:   handlers.NewOrderHandler(conferenceRepo, checkoutSvc, orderRepo, paymentRepo),
		Payment: handlers.NewPaymentHandler(paymentSvc, orderRepo, creditRepo, conferenceRepo, cfg.Stripe.WebhookSecret),
		Admin: handlers.NewAdminHandler(
			conferenceRepo, catalogRepo, voucherRepo, voucherSvc,
			paymentSvc, refundSvc, orderRepo, checkoutSvc,
			scheduleSyncSvc, sponsorSyncSvc,
		),
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: strings.Split(getEnvDefault("ALLOWED_ORIGINS", "*"), ","),
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
