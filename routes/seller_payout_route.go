package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/middlewares/auth"
)

func RegisterSellerPayoutRoutes(router *gin.Engine, deps Dependencies) {
	controller := deps.Payouts
	rl := deps.RateLimiter

	admin := router.Group("/admin/payouts")
	admin.Use(auth.AuthMiddleware(deps.JWTSecret), auth.RequireAdmin())
	{
		admin.GET("", rl.Limit("60-1m", "admin-payouts-list"), controller.ListPayouts)
		admin.GET("/events", controller.Events)
		admin.GET("/:id", rl.Limit("60-1m", "admin-payouts-get"), controller.GetPayout)
		admin.POST("/:id/advance", rl.Combined("admin-payouts-advance", "20-1m", "200-60m"), controller.Advance)
		admin.POST("/:id/cancel", rl.Combined("admin-payouts-cancel", "20-1m", "200-60m"), controller.Cancel)
		admin.POST("/:id/move-back", rl.Combined("admin-payouts-move-back", "10-1m", "100-60m"), controller.MoveBack)
		admin.POST("/:id/notes", rl.Limit("30-1m", "admin-payouts-notes"), controller.AddNote)
		admin.POST("/:id/disburse", rl.Combined("admin-payouts-disburse", "5-1m", "50-60m"), controller.Disburse)
		admin.DELETE("/:id", rl.Limit("10-1m", "admin-payouts-delete"), controller.DeletePayout)
	}

	seller := router.Group("/seller/payouts")
	seller.Use(auth.AuthMiddleware(deps.JWTSecret), auth.RequireSeller())
	{
		seller.GET("", rl.Limit("30-1m", "seller-payouts-list"), controller.SellerPayouts)
		seller.POST("", rl.Combined("seller-payouts-request", "3-1m", "10-24h"), controller.RequestPayout)
	}
}
