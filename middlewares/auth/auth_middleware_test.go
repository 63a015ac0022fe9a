package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joy095/marketplace/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger.Silence()

	r := gin.New()
	admin := r.Group("/admin", AuthMiddleware(secret), RequireAdmin())
	admin.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	seller := r.Group("/seller", AuthMiddleware(secret), RequireSeller())
	seller.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(t *testing.T, r *gin.Engine, path string, claims jwt.MapClaims) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if claims != nil {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAdminRoutes(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/admin/ping", nil))
	assert.Equal(t, http.StatusForbidden, do(t, r, "/admin/ping", jwt.MapClaims{"sub": "u1", "role": "seller"}))
	assert.Equal(t, http.StatusNoContent, do(t, r, "/admin/ping", jwt.MapClaims{"sub": "u1", "role": "admin"}))
}

func TestSellerRoutes(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden, do(t, r, "/seller/ping", jwt.MapClaims{"sub": "u1"}))
	assert.Equal(t, http.StatusNoContent, do(t, r, "/seller/ping", jwt.MapClaims{
		"sub":       "u1",
		"seller_id": "0190b2a4-7c1e-7a00-8000-000000000001",
	}))
}
