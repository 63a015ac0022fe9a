package ledger_service

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/ledger_models"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/joy095/marketplace/models/seller_models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type OrderSource interface {
	ListOrders(ctx context.Context, dr order_models.DateRange, sellerID *uuid.UUID) ([]order_models.Order, error)
}

type PayoutSource interface {
	ListPayouts(ctx context.Context, filter payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error)
}

type SellerSource interface {
	ListSellers(ctx context.Context) ([]seller_models.Seller, error)
}

type PricingSource interface {
	GetPricingConfig(ctx context.Context) (pricing_models.PricingConfig, error)
}

type Service struct {
	orders  OrderSource
	payouts PayoutSource
	sellers SellerSource
	pricing PricingSource
}

func New(orders OrderSource, payouts PayoutSource, sellers SellerSource, pricing PricingSource) *Service {
	return &Service{orders: orders, payouts: payouts, sellers: sellers, pricing: pricing}
}

type inputs struct {
	orders  []order_models.Order
	payouts []payout_models.PayoutRequest
	names   map[uuid.UUID]string
	pricing pricing_models.PricingConfig
}

// fetch reads every ledger input concurrently. All reads must succeed.
func (s *Service) fetch(ctx context.Context, dr order_models.DateRange, sellerID *uuid.UUID) (inputs, error) {
	var in inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orders, err := s.orders.ListOrders(gctx, dr, sellerID)
		in.orders = orders
		return err
	})
	g.Go(func() error {
		payouts, err := s.payouts.ListPayouts(gctx, payout_models.PayoutFilter{SellerID: sellerID, From: dr.From, To: dr.To})
		in.payouts = payouts
		return err
	})
	g.Go(func() error {
		sellers, err := s.sellers.ListSellers(gctx)
		in.names = seller_models.NameIndex(sellers)
		return err
	})
	g.Go(func() error {
		cfg, err := s.pricing.GetPricingConfig(gctx)
		in.pricing = cfg
		return err
	})

	if err := g.Wait(); err != nil {
		logger.ErrorLogger.Errorf("Failed to load ledger inputs: %v", err)
		return inputs{}, err
	}
	return in, nil
}

// Build computes the ledger for dr, optionally scoped to one seller.
func (s *Service) Build(ctx context.Context, dr order_models.DateRange, sellerID *uuid.UUID) (ledger_models.Ledger, error) {
	in, err := s.fetch(ctx, dr, sellerID)
	if err != nil {
		return ledger_models.Ledger{}, err
	}

	l := ledger_models.Aggregate(ledger_models.Input{
		Orders:      in.orders,
		Payouts:     in.payouts,
		SellerNames: in.names,
		Pricing:     in.pricing,
		SellerID:    sellerID,
	})
	for _, w := range l.Warnings {
		logger.WarnLogger.Warnf("Ledger input: %v", w)
	}
	return l, nil
}

// AvailableBalance is the amount sellerID can still request as a payout,
// over the seller's whole history.
func (s *Service) AvailableBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	in, err := s.fetch(ctx, order_models.DateRange{}, &sellerID)
	if err != nil {
		return decimal.Zero, err
	}

	l := ledger_models.Aggregate(ledger_models.Input{
		Orders:      in.orders,
		Payouts:     in.payouts,
		SellerNames: in.names,
		Pricing:     in.pricing,
		SellerID:    &sellerID,
	})
	row, ok := l.Supplier(sellerID)
	if !ok {
		row = ledger_models.SupplierRow{SellerID: sellerID}
	}
	return ledger_models.SellerBalance(row, in.payouts), nil
}

// Dashboard is the back-office overview for a date range.
type Dashboard struct {
	Summary         ledger_models.Summary        `json:"summary"`
	PayoutCounts    map[payout_models.Status]int `json:"payout_counts"`
	InFlightPayouts decimal.Decimal              `json:"in_flight_payouts"`
	TopSuppliers    []ledger_models.SupplierRow  `json:"top_suppliers"`
	WarningCount    int                          `json:"warning_count"`
}

const topSuppliers = 5

func (s *Service) Dashboard(ctx context.Context, dr order_models.DateRange) (Dashboard, error) {
	in, err := s.fetch(ctx, dr, nil)
	if err != nil {
		return Dashboard{}, err
	}

	l := ledger_models.Aggregate(ledger_models.Input{
		Orders:      in.orders,
		Payouts:     in.payouts,
		SellerNames: in.names,
		Pricing:     in.pricing,
	})

	out := Dashboard{
		Summary:      l.Summary,
		PayoutCounts: make(map[payout_models.Status]int, len(payout_models.AllStatuses)),
		WarningCount: len(l.Warnings),
	}
	for _, st := range payout_models.AllStatuses {
		out.PayoutCounts[st] = 0
	}
	for _, p := range in.payouts {
		out.PayoutCounts[p.Status]++
		if p.Status.InFlight() {
			out.InFlightPayouts = out.InFlightPayouts.Add(p.EffectiveAmount())
		}
	}

	top := append([]ledger_models.SupplierRow(nil), l.Suppliers...)
	sortBySales(top)
	if len(top) > topSuppliers {
		top = top[:topSuppliers]
	}
	out.TopSuppliers = top
	return out, nil
}

// sortBySales orders rows by sales descending; equal sales keep their order.
func sortBySales(rows []ledger_models.SupplierRow) {
	slices.SortStableFunc(rows, func(a, b ledger_models.SupplierRow) int {
		return b.Sales.Cmp(a.Sales)
	})
}
