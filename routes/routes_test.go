package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joy095/marketplace/controllers/ledger_controller"
	"github.com/joy095/marketplace/controllers/seller_payout_controller"
	"github.com/joy095/marketplace/logger"
	middleware "github.com/joy095/marketplace/middlewares"
	"github.com/joy095/marketplace/models/ledger_models"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/joy095/marketplace/services/ledger_service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("routes-secret")

type stubPayouts struct{}

func (stubPayouts) List(context.Context, payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error) {
	return nil, nil
}
func (stubPayouts) Get(context.Context, uuid.UUID) (*payout_models.PayoutRequest, error) {
	return &payout_models.PayoutRequest{}, nil
}
func (stubPayouts) RequestPayout(context.Context, uuid.UUID, decimal.Decimal, string, string) (*payout_models.PayoutRequest, error) {
	return &payout_models.PayoutRequest{}, nil
}
func (stubPayouts) Transition(context.Context, uuid.UUID, payout_models.Action, payout_models.TransitionContext, payout_models.Status) (*payout_models.PayoutRequest, error) {
	return &payout_models.PayoutRequest{}, nil
}
func (stubPayouts) AddNote(context.Context, uuid.UUID, string, string) (*payout_models.PayoutRequest, error) {
	return &payout_models.PayoutRequest{}, nil
}
func (stubPayouts) Disburse(context.Context, uuid.UUID, string) (*payout_models.PayoutRequest, error) {
	return &payout_models.PayoutRequest{}, nil
}
func (stubPayouts) Delete(context.Context, uuid.UUID, string) error { return nil }

type stubLedger struct{}

func (stubLedger) Build(context.Context, order_models.DateRange, *uuid.UUID) (ledger_models.Ledger, error) {
	return ledger_models.Aggregate(ledger_models.Input{}), nil
}
func (stubLedger) Dashboard(context.Context, order_models.DateRange) (ledger_service.Dashboard, error) {
	return ledger_service.Dashboard{}, nil
}
func (stubLedger) AvailableBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (stubLedger) GetPricingConfig(context.Context) (pricing_models.PricingConfig, error) {
	return pricing_models.PricingConfig{}, nil
}
func (stubLedger) SavePricingConfig(context.Context, pricing_models.PricingConfig) error { return nil }

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Silence()

	payouts, err := seller_payout_controller.NewSellerPayoutController(stubPayouts{}, nil)
	require.NoError(t, err)
	ledger, err := ledger_controller.NewLedgerController(stubLedger{}, stubLedger{})
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(r, Dependencies{
		Payouts:     payouts,
		Ledger:      ledger,
		RateLimiter: middleware.NewRateLimiterFactory(nil),
		JWTSecret:   secret,
	})
	return r
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return "Bearer " + s
}

func call(r http.Handler, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouteAccess(t *testing.T) {
	r := newEngine(t)
	admin := token(t, jwt.MapClaims{"sub": "a1", "email": "ops@example.com", "role": "admin"})
	seller := token(t, jwt.MapClaims{"sub": "s1", "role": "seller", "seller_id": uuid.NewString()})

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", ""))

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/admin/ledger", ""))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/admin/ledger", seller))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/admin/ledger", admin))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/admin/payouts", admin))
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/admin/payouts/"+uuid.NewString()+"/advance", admin))

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/seller/ledger", seller))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/seller/payouts", seller))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/seller/payouts", admin))
}
