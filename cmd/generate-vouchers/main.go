// Command generate-vouchers creates a batch of single-use discount
// vouchers for a conference and prints the generated codes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/config"
	"conference-registration-platform/internal/database"
	"conference-registration-platform/internal/models"
	"conference-registration-platform/internal/repositories"
	"conference-registration-platform/internal/services"
)

func main() {
	conferenceID := flag.Int64("conference", 0, "conference ID (required)")
	count := flag.Int("count", 10, "number of vouchers to generate")
	prefix := flag.String("prefix", "", "code prefix")
	voucherType := flag.String("type", "percentage", "voucher type: percentage, fixed or comp")
	value := flag.String("value", "0", "discount value (percent or fixed amount)")
	maxUses := flag.Int("max-uses", 1, "maximum redemptions per voucher")
	validDays := flag.Int("valid-days", 0, "days until expiry, 0 for no expiry")
	unlocksHidden := flag.Bool("unlocks-hidden", false, "vouchers unlock hidden ticket types")
	flag.Parse()

	if *conferenceID == 0 {
		log.Fatal("-conference is required")
	}

	discount, err := decimal.NewFromString(*value)
	if err != nil {
		log.Fatalf("invalid -value: %v", err)
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

	voucherSvc := services.NewVoucherService(repositories.NewVoucherRepository(db.DB))

	req := services.BatchRequest{
		ConferenceID:         *conferenceID,
		Count:                *count,
		Prefix:               *prefix,
		Type:                 models.VoucherType(*voucherType),
		DiscountValue:        discount,
		MaxUses:              *maxUses,
		UnlocksHiddenTickets: *unlocksHidden,
	}
	if *validDays > 0 {
		until := time.Now().AddDate(0, 0, *validDays)
		req.ValidUntil = &until
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	vouchers, err := voucherSvc.GenerateBatch(ctx, req)
	if err != nil {
		log.Fatalf("failed to generate vouchers: %v", err)
	}

	for _, v := range vouchers {
		fmt.Println(v.Code)
	}
	log.Printf("generated %d vouchers", len(vouchers))
}
