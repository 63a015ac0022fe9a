package ledger_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/ledger_models"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/joy095/marketplace/services/ledger_service"
	"github.com/joy095/marketplace/utils"
	"github.com/shopspring/decimal"
)

type LedgerService interface {
	Build(ctx context.Context, dr order_models.DateRange, sellerID *uuid.UUID) (ledger_models.Ledger, error)
	Dashboard(ctx context.Context, dr order_models.DateRange) (ledger_service.Dashboard, error)
	AvailableBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error)
}

type PricingStore interface {
	GetPricingConfig(ctx context.Context) (pricing_models.PricingConfig, error)
	SavePricingConfig(ctx context.Context, cfg pricing_models.PricingConfig) error
}

type LedgerController struct {
	ledger  LedgerService
	pricing PricingStore
}

func NewLedgerController(ledger LedgerService, pricing PricingStore) (*LedgerController, error) {
	if ledger == nil || pricing == nil {
		return nil, errors.New("ledger service and pricing store are required")
	}
	return &LedgerController{ledger: ledger, pricing: pricing}, nil
}

func dateRange(c *gin.Context) (order_models.DateRange, error) {
	dr, err := order_models.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return dr, utils.NewValidationError("from", "", err.Error())
	}
	return dr, nil
}

func sellerFilter(c *gin.Context) (*uuid.UUID, error) {
	raw := c.Query("seller_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, utils.NewValidationError("seller_id", "", "invalid seller id")
	}
	return &id, nil
}

func (lc *LedgerController) build(c *gin.Context) (ledger_models.Ledger, bool) {
	dr, err := dateRange(c)
	if err != nil {
		utils.RespondError(c, err)
		return ledger_models.Ledger{}, false
	}
	sellerID, err := sellerFilter(c)
	if err != nil {
		utils.RespondError(c, err)
		return ledger_models.Ledger{}, false
	}

	l, err := lc.ledger.Build(c.Request.Context(), dr, sellerID)
	if err != nil {
		utils.RespondError(c, err)
		return ledger_models.Ledger{}, false
	}
	return l, true
}

// GetLedger returns the settlement ledger for ?from=&to=&seller_id=.
func (lc *LedgerController) GetLedger(c *gin.Context) {
	l, ok := lc.build(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, l)
}

// ExportLedger downloads the transaction timeline as CSV.
func (lc *LedgerController) ExportLedger(c *gin.Context) {
	l, ok := lc.build(c)
	if !ok {
		return
	}

	name := fmt.Sprintf("ledger-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)

	if err := ledger_models.WriteCSV(c.Writer, l.Transactions); err != nil {
		logger.ErrorLogger.Errorf("Failed to write ledger export: %v", err)
	}
}

func (lc *LedgerController) Dashboard(c *gin.Context) {
	dr, err := dateRange(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	dash, err := lc.ledger.Dashboard(c.Request.Context(), dr)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// PricingPreview shows the fee, GST and seller earning for ?price=.
func (lc *LedgerController) PricingPreview(c *gin.Context) {
	price, err := decimal.NewFromString(c.Query("price"))
	if err != nil || price.IsNegative() {
		utils.RespondError(c, utils.NewValidationError("price", "", "price must be a non-negative number"))
		return
	}

	cfg, err := lc.pricing.GetPricingConfig(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	preview := pricing_models.Preview(price, cfg)
	c.JSON(http.StatusOK, gin.H{
		"preview": preview,
		"display": gin.H{
			"price":          pricing_models.FormatINR(preview.Price),
			"fee":            pricing_models.FormatINR(preview.Fee),
			"gst":            pricing_models.FormatINR(preview.GST),
			"seller_earning": pricing_models.FormatINR(preview.SellerEarning),
		},
	})
}

func (lc *LedgerController) GetPricing(c *gin.Context) {
	cfg, err := lc.pricing.GetPricingConfig(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pricing": cfg})
}

func (lc *LedgerController) UpdatePricing(c *gin.Context) {
	var cfg pricing_models.PricingConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.RespondError(c, utils.NewValidationError("", "", "invalid request: "+err.Error()))
		return
	}
	if err := lc.pricing.SavePricingConfig(c.Request.Context(), cfg); err != nil {
		utils.RespondError(c, err)
		return
	}
	logger.InfoLogger.Infof("Pricing settings changed by %s", utils.GetCurrentUser(c).Actor())
	c.JSON(http.StatusOK, gin.H{"message": "Pricing updated", "pricing": cfg})
}

// SellerLedger is the seller's own view: their row, timeline and what they
// can still request.
func (lc *LedgerController) SellerLedger(c *gin.Context) {
	sellerID, err := utils.GetSellerIDFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	dr, err := dateRange(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	l, err := lc.ledger.Build(c.Request.Context(), dr, &sellerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	available, err := lc.ledger.AvailableBalance(c.Request.Context(), sellerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	row, _ := l.Supplier(sellerID)
	c.JSON(http.StatusOK, gin.H{
		"summary":      row,
		"transactions": l.Transactions,
		"available":    available,
	})
}
