package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/controllers/ledger_controller"
	"github.com/joy095/marketplace/controllers/seller_payout_controller"
	middleware "github.com/joy095/marketplace/middlewares"
)

// Dependencies are the wired controllers and shared middleware the routes need.
type Dependencies struct {
	Payouts     *seller_payout_controller.SellerPayoutController
	Ledger      *ledger_controller.LedgerController
	RateLimiter *middleware.RateLimiter
	JWTSecret   []byte
}

func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok from marketplace service"})
	})

	RegisterSellerPayoutRoutes(router, deps)
	RegisterLedgerRoutes(router, deps)
}
