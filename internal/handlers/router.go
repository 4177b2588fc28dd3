package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"conference-registration-platform/internal/middleware"
)

// RouterConfig bundles the handlers and settings the router needs
type RouterConfig struct {
	Auth           *AuthHandler
	Public         *PublicHandler
	Cart           *CartHandler
	Order          *OrderHandler
	Payment        *PaymentHandler
	Admin          *AdminHandler
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter builds the HTTP router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", cfg.Auth.Register)
		r.Post("/auth/login", cfg.Auth.Login)

		// Webhook authentication is the gateway signature, not a user
		// token.
		r.Post("/webhooks/stripe", cfg.Payment.Webhook)

		r.Route("/conferences/{slug}", func(r chi.Router) {
			r.Get("/", cfg.Public.GetConference)
			r.Get("/ticket-types", cfg.Public.ListTicketTypes)
			r.Get("/addons", cfg.Public.ListAddOns)
			r.Get("/availability", cfg.Public.GetAvailability)
			r.Get("/talks", cfg.Public.ListTalks)
			r.Get("/speakers", cfg.Public.ListSpeakers)
			r.Get("/sponsors", cfg.Public.ListSponsors)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWTSecret))

				r.Get("/cart", cfg.Cart.GetCart)
				r.Post("/cart/items", cfg.Cart.AddItem)
				r.Delete("/cart/items/{itemID}", cfg.Cart.RemoveItem)
				r.Post("/cart/voucher", cfg.Cart.ApplyVoucher)
				r.Delete("/cart/voucher", cfg.Cart.RemoveVoucher)

				r.Post("/checkout", cfg.Order.Checkout)
				r.Get("/orders", cfg.Order.ListOrders)
				r.Get("/credits", cfg.Payment.ListCredits)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Get("/orders/{orderID}", cfg.Order.GetOrder)
			r.Post("/orders/{orderID}/pay", cfg.Payment.InitiatePayment)
			r.Post("/orders/{orderID}/settle-zero", cfg.Payment.SettleZeroTotal)
			r.Post("/orders/{orderID}/apply-credit", cfg.Payment.ApplyCredit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RequireStaff)

			r.Get("/conferences", cfg.Admin.ListConferences)
			r.Post("/conferences", cfg.Admin.CreateConference)
			r.Put("/conferences/{conferenceID}", cfg.Admin.UpdateConference)

			r.Post("/conferences/{conferenceID}/ticket-types", cfg.Admin.CreateTicketType)
			r.Put("/ticket-types/{ticketTypeID}", cfg.Admin.UpdateTicketType)
			r.Post("/conferences/{conferenceID}/addons", cfg.Admin.CreateAddOn)

			r.Get("/conferences/{conferenceID}/vouchers", cfg.Admin.ListVouchers)
			r.Post("/conferences/{conferenceID}/vouchers", cfg.Admin.CreateVoucher)
			r.Post("/conferences/{conferenceID}/vouchers/batch", cfg.Admin.GenerateVouchers)

			r.Post("/orders/{orderID}/payments", cfg.Admin.RecordManualPayment)
			r.Post("/orders/{orderID}/refunds", cfg.Admin.CreateRefund)

			r.Get("/conferences/{conferenceID}/orders", cfg.Admin.SearchOrders)
			r.Get("/conferences/{conferenceID}/stats", cfg.Admin.GetStatistics)

			r.Post("/conferences/{conferenceID}/sync-schedule", cfg.Admin.SyncSchedule)
			r.Post("/conferences/{conferenceID}/sync-sponsors", cfg.Admin.SyncSponsors)
			r.Post("/expire-orders", cfg.Admin.ExpireOrders)
		})
	})

	return r
}
