package ledger_service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/joy095/marketplace/models/seller_models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	orders []order_models.Order
	err    error

	mu       sync.Mutex
	lastSpan order_models.DateRange
	lastSell *uuid.UUID
}

func (f *fakeOrders) ListOrders(_ context.Context, dr order_models.DateRange, sellerID *uuid.UUID) ([]order_models.Order, error) {
	f.mu.Lock()
	f.lastSpan, f.lastSell = dr, sellerID
	f.mu.Unlock()
	return f.orders, f.err
}

type fakePayouts struct {
	payouts []payout_models.PayoutRequest
}

func (f *fakePayouts) ListPayouts(_ context.Context, filter payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error) {
	var out []payout_models.PayoutRequest
	for _, p := range f.payouts {
		if filter.SellerID == nil || p.SellerID == *filter.SellerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSellers []seller_models.Seller

func (f fakeSellers) ListSellers(context.Context) ([]seller_models.Seller, error) { return f, nil }

type fixedPricing pricing_models.PricingConfig

func (f fixedPricing) GetPricingConfig(context.Context) (pricing_models.PricingConfig, error) {
	return pricing_models.PricingConfig(f), nil
}

var (
	acme   = uuid.MustParse("0190b2a4-7c1e-7a00-8000-0000000000a1")
	zenith = uuid.MustParse("0190b2a4-7c1e-7a00-8000-0000000000b2")
	now    = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	cfg    = fixedPricing{PlatformFeePercent: decimal.NewFromInt(10), MinFee: decimal.NewFromInt(50)}
)

func delivered(seller uuid.UUID, total int64) order_models.Order {
	return order_models.Order{
		ID:          uuid.New(),
		Status:      order_models.StatusDelivered,
		TotalAmount: decimal.NewFromInt(total),
		CreatedAt:   now,
		Items:       []order_models.OrderItem{{ProductID: uuid.New(), SellerID: uuid.NullUUID{UUID: seller, Valid: true}}},
	}
}

func payout(seller uuid.UUID, status payout_models.Status, amount int64) payout_models.PayoutRequest {
	return payout_models.PayoutRequest{ID: uuid.New(), SellerID: seller, Status: status, Amount: decimal.NewFromInt(amount), CreatedAt: now}
}

func newService(orders *fakeOrders, payouts ...payout_models.PayoutRequest) *Service {
	sellers := fakeSellers{{ID: acme, Name: "Acme Traders"}, {ID: zenith, Name: "Zenith Crafts"}}
	return New(orders, &fakePayouts{payouts: payouts}, sellers, cfg)
}

func TestBuild(t *testing.T) {
	orders := &fakeOrders{orders: []order_models.Order{delivered(acme, 1000), delivered(zenith, 3000)}}
	svc := newService(orders, payout(acme, payout_models.StatusPaid, 200))

	dr := order_models.DateRange{From: now.AddDate(0, -1, 0), To: now.AddDate(0, 0, 1)}
	l, err := svc.Build(context.Background(), dr, nil)
	require.NoError(t, err)

	assert.Equal(t, dr, orders.lastSpan)
	assert.Nil(t, orders.lastSell)
	assert.True(t, l.Summary.Revenue.Equal(decimal.NewFromInt(4000)))
	assert.True(t, l.Summary.PaidOut.Equal(decimal.NewFromInt(200)))
	require.Len(t, l.Suppliers, 2)
	assert.Equal(t, "Acme Traders", l.Suppliers[0].Name)
}

func TestBuildFailsWhenAnyInputFails(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newService(&fakeOrders{err: boom})

	_, err := svc.Build(context.Background(), order_models.DateRange{}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestAvailableBalance(t *testing.T) {
	orders := &fakeOrders{orders: []order_models.Order{delivered(acme, 10000)}}
	svc := newService(orders,
		payout(acme, payout_models.StatusPaid, 2000),
		payout(acme, payout_models.StatusRequested, 1500),
		payout(acme, payout_models.StatusCancelled, 999),
		payout(zenith, payout_models.StatusRequested, 500),
	)

	got, err := svc.AvailableBalance(context.Background(), acme)
	require.NoError(t, err)
	// 10000 - 1000 fee - 2000 paid - 1500 in flight
	assert.True(t, got.Equal(decimal.NewFromInt(5500)), got.String())
	require.NotNil(t, orders.lastSell)
	assert.Equal(t, acme, *orders.lastSell)
}

func TestAvailableBalanceForNewSeller(t *testing.T) {
	svc := newService(&fakeOrders{})

	got, err := svc.AvailableBalance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDashboard(t *testing.T) {
	approved := payout(zenith, payout_models.StatusApprovalPending, 400)
	approved.TotalPayable = decimal.NewNullDecimal(decimal.NewFromInt(450))

	orders := &fakeOrders{orders: []order_models.Order{delivered(acme, 1000), delivered(zenith, 3000)}}
	svc := newService(orders,
		payout(acme, payout_models.StatusRequested, 100),
		approved,
		payout(acme, payout_models.StatusPaid, 50),
	)

	dash, err := svc.Dashboard(context.Background(), order_models.DateRange{})
	require.NoError(t, err)

	assert.Equal(t, 1, dash.PayoutCounts[payout_models.StatusRequested])
	assert.Equal(t, 1, dash.PayoutCounts[payout_models.StatusApprovalPending])
	assert.Equal(t, 1, dash.PayoutCounts[payout_models.StatusPaid])
	assert.Equal(t, 0, dash.PayoutCounts[payout_models.StatusCancelled])
	assert.True(t, dash.InFlightPayouts.Equal(decimal.NewFromInt(550)))

	require.Len(t, dash.TopSuppliers, 2)
	assert.Equal(t, zenith, dash.TopSuppliers[0].SellerID)
}
