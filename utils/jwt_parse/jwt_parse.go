package jwt_parse

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
)

// Claims is the subset of the access token the settlement API relies on.
type Claims struct {
	UserID   string
	Email    string
	Role     string
	SellerID string
}

var (
	ErrMissingToken  = errors.New("no authorization token")
	ErrInvalidFormat = errors.New("invalid authorization format")
	ErrInvalidToken  = errors.New("invalid token")
)

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	if len(authHeader) > 7 && strings.ToLower(authHeader[:7]) == "bearer " {
		return strings.TrimSpace(authHeader[7:]), nil
	}
	return "", ErrInvalidFormat
}

// ParseClaims validates an HMAC signed token and extracts its claims.
func ParseClaims(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		Email:    stringClaim(mapClaims, "email"),
		Role:     stringClaim(mapClaims, "role"),
		SellerID: stringClaim(mapClaims, "seller_id"),
	}

	// Older tokens carry user_id instead of sub.
	claims.UserID = stringClaim(mapClaims, "user_id")
	if claims.UserID == "" {
		claims.UserID = stringClaim(mapClaims, "sub")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: no user identifier", ErrInvalidToken)
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// ParseJWTToken parses and validates the bearer token, setting the claims in
// the gin context under the keys declared in utils.
func ParseJWTToken(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			logger.ErrorLogger.Errorf("Rejecting request: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := ParseClaims(tokenString, secret)
		if err != nil {
			logger.ErrorLogger.Errorf("Failed to parse JWT token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(utils.ContextUserID, claims.UserID)
		c.Set(utils.ContextEmail, claims.Email)
		c.Set(utils.ContextRole, claims.Role)
		if claims.SellerID != "" {
			c.Set(utils.ContextSellerID, claims.SellerID)
		}
		c.Next()
	}
}
