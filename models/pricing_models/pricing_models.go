package pricing_models

import (
	"strings"

	"github.com/joy095/marketplace/config"
	"github.com/joy095/marketplace/utils"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricingConfig holds the platform commission settings.
type PricingConfig struct {
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
	MinFee             decimal.Decimal `json:"min_fee"`
	GSTRatePercent     decimal.Decimal `json:"gst_rate_percent"`
}

// DefaultsFromEnv is the configuration used until a settings row exists.
func DefaultsFromEnv() PricingConfig {
	return PricingConfig{
		PlatformFeePercent: config.GetDecimal("DEFAULT_PLATFORM_FEE_PERCENT", decimal.NewFromInt(10)),
		MinFee:             config.GetDecimal("DEFAULT_MIN_FEE", decimal.NewFromInt(10)),
		GSTRatePercent:     config.GetDecimal("DEFAULT_GST_RATE_PERCENT", decimal.NewFromInt(18)),
	}
}

// Validate rejects percentages outside 0-100 and negative minimum fees.
func (cfg PricingConfig) Validate() error {
	switch {
	case cfg.PlatformFeePercent.IsNegative() || cfg.PlatformFeePercent.GreaterThan(hundred):
		return utils.NewValidationError("platform_fee_percent", "", "must be between 0 and 100")
	case cfg.GSTRatePercent.IsNegative() || cfg.GSTRatePercent.GreaterThan(hundred):
		return utils.NewValidationError("gst_rate_percent", "", "must be between 0 and 100")
	case cfg.MinFee.IsNegative():
		return utils.NewValidationError("min_fee", "", "cannot be negative")
	}
	return nil
}

// ComputeFee returns the platform fee retained on an order of the given amount:
// the configured percentage of the amount, but never less than MinFee.
// The result is exact; rounding is left to presentation.
func ComputeFee(amount decimal.Decimal, cfg PricingConfig) decimal.Decimal {
	fee := amount.Mul(cfg.PlatformFeePercent).Div(hundred)
	return decimal.Max(fee, cfg.MinFee)
}

// PricePreview is the breakdown shown to a seller while pricing a product.
type PricePreview struct {
	Price         decimal.Decimal `json:"price"`
	Fee           decimal.Decimal `json:"fee"`
	GST           decimal.Decimal `json:"gst"`
	SellerEarning decimal.Decimal `json:"seller_earning"`
}

// Preview computes the fee on price, GST charged on that fee, and what the
// seller keeps.
func Preview(price decimal.Decimal, cfg PricingConfig) PricePreview {
	fee := ComputeFee(price, cfg)
	gst := fee.Mul(cfg.GSTRatePercent).Div(hundred)
	return PricePreview{
		Price:         price,
		Fee:           fee,
		GST:           gst,
		SellerEarning: price.Sub(fee).Sub(gst),
	}
}

// FormatINR renders an amount with rupee symbol and Indian digit grouping,
// e.g. ₹1,23,456.50.
func FormatINR(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	if len(whole) > 3 {
		head, tail := whole[:len(whole)-3], whole[len(whole)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		whole = strings.Join(groups, ",") + "," + tail
	}

	return sign + "₹" + whole + "." + frac
}
