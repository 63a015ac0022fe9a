// Command ledger-export writes the settlement ledger timeline for a date
// range as CSV without starting the HTTP server.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/config"
	"github.com/joy095/marketplace/config/db"
	redisclient "github.com/joy095/marketplace/config/redis"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/ledger_models"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/joy095/marketplace/models/seller_models"
	"github.com/joy095/marketplace/services/ledger_service"
)

func main() {
	now := time.Now().UTC()
	from := flag.String("from", now.AddDate(0, 0, -30).Format("2006-01-02"), "first day to include (YYYY-MM-DD)")
	to := flag.String("to", now.Format("2006-01-02"), "last day to include (YYYY-MM-DD)")
	seller := flag.String("seller", "", "restrict the export to one seller id")
	out := flag.String("out", "", "output file, stdout when empty")
	flag.Parse()

	config.LoadEnv()
	logger.InitLoggers()

	dr, err := order_models.ParseDateRange(*from, *to)
	if err != nil {
		logger.ErrorLogger.Fatalf("Invalid date range: %v", err)
	}

	var sellerID *uuid.UUID
	if *seller != "" {
		id, err := uuid.Parse(*seller)
		if err != nil {
			logger.ErrorLogger.Fatalf("Invalid seller id %q: %v", *seller, err)
		}
		sellerID = &id
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(pool)

	rdb, err := redisclient.Connect(ctx)
	if err != nil {
		logger.WarnLogger.Warnf("Redis unavailable, reading pricing from database: %v", err)
		rdb = nil
	}
	defer redisclient.Close(rdb)

	svc := ledger_service.New(
		order_models.NewRepository(pool),
		payout_models.NewRepository(pool),
		seller_models.NewRepository(pool),
		pricing_models.NewStore(pool, rdb, config.GetDuration("PRICING_CACHE_TTL", 5*time.Minute), pricing_models.DefaultsFromEnv()),
	)

	l, err := svc.Build(ctx, dr, sellerID)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to build ledger: %v", err)
	}
	for _, w := range l.Warnings {
		logger.WarnLogger.Warn(w)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.ErrorLogger.Fatalf("Failed to create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	if err := ledger_models.WriteCSV(w, l.Transactions); err != nil {
		logger.ErrorLogger.Fatalf("Failed to write export: %v", err)
	}
	logger.InfoLogger.Infof("Exported %d transactions", len(l.Transactions))
}
