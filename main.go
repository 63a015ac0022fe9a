package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/clients"
	"github.com/joy095/marketplace/config"
	"github.com/joy095/marketplace/config/db"
	redisclient "github.com/joy095/marketplace/config/redis"
	"github.com/joy095/marketplace/controllers/ledger_controller"
	"github.com/joy095/marketplace/controllers/seller_payout_controller"
	"github.com/joy095/marketplace/logger"
	middleware "github.com/joy095/marketplace/middlewares"
	"github.com/joy095/marketplace/middlewares/cors"
	logger_middleware "github.com/joy095/marketplace/middlewares/logger"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/joy095/marketplace/models/seller_models"
	"github.com/joy095/marketplace/routes"
	"github.com/joy095/marketplace/services/ledger_service"
	"github.com/joy095/marketplace/services/payout_events"
	"github.com/joy095/marketplace/services/payout_service"
	"github.com/joy095/marketplace/services/seller_lock"
	"github.com/joy095/marketplace/utils"
	"github.com/joy095/marketplace/utils/mail"
)

func init() {
	config.LoadEnv()
	logger.InitLoggers()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(pool)

	rdb, err := redisclient.Connect(ctx)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisclient.Close(rdb)

	payoutRepo := payout_models.NewRepository(pool)
	sellerRepo := seller_models.NewRepository(pool)
	pricingStore := pricing_models.NewStore(pool, rdb,
		config.GetDuration("PRICING_CACHE_TTL", 5*time.Minute),
		pricing_models.DefaultsFromEnv())

	ledgerSvc := ledger_service.New(order_models.NewRepository(pool), payoutRepo, sellerRepo, pricingStore)
	events := payout_events.NewNotifier(rdb)

	opts := []payout_service.Option{
		payout_service.WithMailer(mail.NewMailer(mail.SMTPConfigFromEnv())),
		payout_service.WithLocker(seller_lock.New(rdb, config.GetDuration("PAYOUT_REQUEST_LOCK_TTL", 30*time.Second))),
	}
	if keyID, secret := config.GetString("RAZORPAY_KEY_ID", ""), config.GetString("RAZORPAY_KEY_SECRET", ""); keyID != "" && secret != "" {
		opts = append(opts, payout_service.WithDisburser(clients.NewRazorpayClient(keyID, secret)))
	} else {
		logger.WarnLogger.Warn("Razorpay credentials not set, disbursement disabled")
	}
	payoutSvc := payout_service.New(payoutRepo, sellerRepo, ledgerSvc, events, opts...)

	payoutController, err := seller_payout_controller.NewSellerPayoutController(payoutSvc, events)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to initialize payout controller: %v", err)
	}
	ledgerController, err := ledger_controller.NewLedgerController(ledgerSvc, pricingStore)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to initialize ledger controller: %v", err)
	}

	if config.GetString("GIN_MODE", "") == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.CorsMiddleware())
	r.Use(logger_middleware.GinLogger())

	routes.RegisterRoutes(r, routes.Dependencies{
		Payouts:     payoutController,
		Ledger:      ledgerController,
		RateLimiter: middleware.NewRateLimiterFactory(rdb),
		JWTSecret:   utils.GetJWTSecret(),
	})

	port := config.GetString("PORT", "8081")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoLogger.Infof("Marketplace server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Fatalf("Server failed to listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.InfoLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.InfoLogger.Info("Server exited gracefully.")
}
