package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
	"github.com/joy095/marketplace/utils/jwt_parse"
)

// AuthMiddleware authenticates the request with the bearer token.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	parse := jwt_parse.ParseJWTToken(secret)
	return func(c *gin.Context) {
		parse(c)
		if c.IsAborted() {
			return
		}
		if utils.GetCurrentUser(c) == nil {
			logger.ErrorLogger.Error("User ID not found in context after JWT parsing - ABORTING")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "error": "Unauthorized: Missing user identification from token."})
			return
		}
		c.Next()
	}
}

// RequireAdmin allows only back-office users through.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := utils.GetCurrentUser(c)
		if !user.IsAdmin() {
			logger.WarnLogger.Warnf("Non-admin user %s denied access to %s", user.Actor(), c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "ACCESS_DENIED", "error": "Forbidden: admin access required."})
			return
		}
		c.Next()
	}
}

// RequireSeller allows only users whose token names a seller.
func RequireSeller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := utils.GetSellerIDFromContext(c); err != nil {
			c.AbortWithStatusJSON(utils.HTTPStatus(err), gin.H{"code": "ACCESS_DENIED", "error": "Forbidden: seller account required."})
			return
		}
		c.Next()
	}
}
