package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/middlewares/auth"
)

func RegisterLedgerRoutes(router *gin.Engine, deps Dependencies) {
	controller := deps.Ledger
	rl := deps.RateLimiter

	admin := router.Group("/admin")
	admin.Use(auth.AuthMiddleware(deps.JWTSecret), auth.RequireAdmin())
	{
		admin.GET("/ledger", rl.Limit("30-1m", "admin-ledger"), controller.GetLedger)
		admin.GET("/ledger/export", rl.Limit("5-1m", "admin-ledger-export"), controller.ExportLedger)
		admin.GET("/dashboard", rl.Limit("30-1m", "admin-dashboard"), controller.Dashboard)
		admin.GET("/pricing", rl.Limit("30-1m", "admin-pricing"), controller.GetPricing)
		admin.PUT("/pricing", rl.Combined("admin-pricing-update", "5-1m", "20-60m"), controller.UpdatePricing)
		admin.GET("/pricing/preview", rl.Limit("60-1m", "admin-pricing-preview"), controller.PricingPreview)
	}

	seller := router.Group("/seller")
	seller.Use(auth.AuthMiddleware(deps.JWTSecret), auth.RequireSeller())
	{
		seller.GET("/ledger", rl.Limit("30-1m", "seller-ledger"), controller.SellerLedger)
	}
}
