package ledger_models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/models/order_models"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/joy095/marketplace/utils"
	"github.com/shopspring/decimal"
)

const (
	UnknownSupplier = "Unknown Supplier"
	UnknownSeller   = "Unknown Seller"

	KindOrder  = "order"
	KindPayout = "payout"

	WarnOrderSeller  = "order_seller"
	WarnSellerName   = "seller_name"
	WarnOrderStatus  = "order_status"
	WarnPayoutStatus = "payout_status"
)

// Input is everything one aggregation run reads. Orders and payouts are
// expected to be filtered to the date range already.
type Input struct {
	Orders      []order_models.Order
	Payouts     []payout_models.PayoutRequest
	SellerNames map[uuid.UUID]string
	Pricing     pricing_models.PricingConfig
	// SellerID scopes the ledger to one seller when set.
	SellerID *uuid.UUID
}

type Summary struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Fees     decimal.Decimal `json:"fees"`
	Earnings decimal.Decimal `json:"earnings"`
	Refunds  decimal.Decimal `json:"refunds"`
	Pending  decimal.Decimal `json:"pending"`
	PaidOut  decimal.Decimal `json:"paid_out"`
}

// SupplierRow is one seller's aggregate for the run.
type SupplierRow struct {
	SellerID uuid.UUID       `json:"seller_id"`
	Name     string          `json:"name"`
	Orders   int             `json:"orders"`
	Sales    decimal.Decimal `json:"sales"`
	Refunds  decimal.Decimal `json:"refunds"`
	Fees     decimal.Decimal `json:"fees"`
	Paid     decimal.Decimal `json:"paid"`
	Pending  decimal.Decimal `json:"pending"`
	Net      decimal.Decimal `json:"net"`
}

// Transaction is a timeline entry for either an order or a payout.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	Kind         string          `json:"kind"`
	Date         time.Time       `json:"date"`
	SellerID     uuid.UUID       `json:"seller_id"`
	Supplier     string          `json:"supplier"`
	Status       string          `json:"status"`
	Gross        decimal.Decimal `json:"gross"`
	Fee          decimal.Decimal `json:"fee"`
	RefundDeduct decimal.Decimal `json:"refund_deduct"`
	Earning      decimal.Decimal `json:"earning"`
	Net          decimal.Decimal `json:"net"`
}

type Ledger struct {
	Summary      Summary                       `json:"summary"`
	Suppliers    []SupplierRow                 `json:"suppliers"`
	Transactions []Transaction                 `json:"transactions"`
	Warnings     []utils.AggregationInputError `json:"warnings,omitempty"`
}

// Supplier returns the row for sellerID, if the run saw that seller.
func (l Ledger) Supplier(sellerID uuid.UUID) (SupplierRow, bool) {
	for _, row := range l.Suppliers {
		if row.SellerID == sellerID {
			return row, true
		}
	}
	return SupplierRow{}, false
}

type aggregator struct {
	in       Input
	summary  Summary
	rows     map[uuid.UUID]*SupplierRow
	txns     []Transaction
	warnings []utils.AggregationInputError
	unnamed  map[uuid.UUID]bool
}

// Aggregate computes the settlement ledger. It is pure: the same input always
// produces the same output, and malformed references degrade into warnings
// rather than errors.
func Aggregate(in Input) Ledger {
	a := &aggregator{
		in:      in,
		rows:    make(map[uuid.UUID]*SupplierRow),
		unnamed: make(map[uuid.UUID]bool),
	}

	for _, o := range in.Orders {
		a.addOrder(o)
	}
	for _, p := range in.Payouts {
		a.addPayout(p)
	}

	suppliers := make([]SupplierRow, 0, len(a.rows))
	for _, row := range a.rows {
		suppliers = append(suppliers, *row)
	}
	slices.SortFunc(suppliers, func(x, y SupplierRow) int {
		if c := strings.Compare(x.Name, y.Name); c != 0 {
			return c
		}
		return strings.Compare(x.SellerID.String(), y.SellerID.String())
	})

	slices.SortStableFunc(a.txns, func(x, y Transaction) int {
		return y.Date.Compare(x.Date)
	})

	if a.txns == nil {
		a.txns = []Transaction{}
	}
	return Ledger{
		Summary:      a.summary,
		Suppliers:    suppliers,
		Transactions: a.txns,
		Warnings:     a.warnings,
	}
}

func (a *aggregator) inScope(sellerID uuid.UUID) bool {
	return a.in.SellerID == nil || *a.in.SellerID == sellerID
}

func (a *aggregator) warn(kind string, ref uuid.UUID, reason string) {
	a.warnings = append(a.warnings, utils.AggregationInputError{Kind: kind, Ref: ref.String(), Reason: reason})
}

func (a *aggregator) row(sellerID uuid.UUID, fallbackName string) *SupplierRow {
	if row, ok := a.rows[sellerID]; ok {
		return row
	}

	name := UnknownSupplier
	if sellerID != uuid.Nil {
		if n, ok := a.in.SellerNames[sellerID]; ok && n != "" {
			name = n
		} else if fallbackName != "" {
			name = fallbackName
		} else {
			name = UnknownSeller
			if !a.unnamed[sellerID] {
				a.unnamed[sellerID] = true
				a.warn(WarnSellerName, sellerID, "seller not found")
			}
		}
	}

	row := &SupplierRow{SellerID: sellerID, Name: name}
	a.rows[sellerID] = row
	return row
}

func (a *aggregator) addOrder(o order_models.Order) {
	sellerID, ok := o.SellerID()
	if !a.inScope(sellerID) {
		return
	}

	total := o.TotalAmount
	txn := Transaction{
		ID:     o.ID,
		Kind:   KindOrder,
		Date:   o.CreatedAt,
		Status: o.Status,
		Gross:  total,
	}

	switch o.Status {
	case order_models.StatusCancelled, order_models.StatusDeliveryFailed:
		return

	case order_models.StatusDelivered:
		fee := pricing_models.ComputeFee(total, a.in.Pricing)
		earning := total.Sub(fee)

		a.summary.Revenue = a.summary.Revenue.Add(total)
		a.summary.Fees = a.summary.Fees.Add(fee)
		a.summary.Earnings = a.summary.Earnings.Add(earning)

		row := a.orderRow(o, sellerID, ok)
		row.Sales = row.Sales.Add(total)
		row.Fees = row.Fees.Add(fee)
		row.Net = row.Net.Add(earning)

		txn.Fee, txn.Earning, txn.Net = fee, earning, earning
		a.appendOrderTxn(txn, row)

	case order_models.StatusReturned, order_models.StatusReturnRefund:
		fee := pricing_models.ComputeFee(total, a.in.Pricing)

		a.summary.Fees = a.summary.Fees.Add(fee)
		a.summary.Refunds = a.summary.Refunds.Add(total)
		a.summary.Earnings = a.summary.Earnings.Sub(fee)

		row := a.orderRow(o, sellerID, ok)
		row.Refunds = row.Refunds.Add(total)
		row.Fees = row.Fees.Add(fee)
		row.Net = row.Net.Sub(fee)

		txn.Fee, txn.RefundDeduct = fee, total
		txn.Earning, txn.Net = fee.Neg(), fee.Neg()
		a.appendOrderTxn(txn, row)

	default:
		// Anything not terminal is pending, unlisted statuses included.
		switch o.Status {
		case order_models.StatusPending, order_models.StatusProcessing,
			order_models.StatusShipped, order_models.StatusPendingApproval:
		default:
			a.warn(WarnOrderStatus, o.ID, "unrecognised order status "+o.Status+", counted as pending")
		}
		a.summary.Pending = a.summary.Pending.Add(total)

		row := a.orderRow(o, sellerID, ok)
		row.Pending = row.Pending.Add(total)
		a.appendOrderTxn(txn, row)
	}
}

func (a *aggregator) orderRow(o order_models.Order, sellerID uuid.UUID, resolved bool) *SupplierRow {
	if !resolved {
		a.warn(WarnOrderSeller, o.ID, "order has no resolvable seller")
	}
	row := a.row(sellerID, "")
	row.Orders++
	return row
}

func (a *aggregator) appendOrderTxn(txn Transaction, row *SupplierRow) {
	txn.SellerID = row.SellerID
	txn.Supplier = row.Name
	a.txns = append(a.txns, txn)
}

func (a *aggregator) addPayout(p payout_models.PayoutRequest) {
	if !a.inScope(p.SellerID) {
		return
	}
	if !p.Status.Valid() {
		a.warn(WarnPayoutStatus, p.ID, "unrecognised payout status "+string(p.Status)+", shown without effect")
	}
	if p.Status == payout_models.StatusCancelled {
		return
	}

	amount := p.EffectiveAmount()
	row := a.row(p.SellerID, p.SellerName)
	txn := Transaction{
		ID:       p.ID,
		Kind:     KindPayout,
		Date:     p.CreatedAt,
		SellerID: row.SellerID,
		Supplier: row.Name,
		Status:   "payout_" + string(p.Status),
		Gross:    amount,
	}

	if p.Status == payout_models.StatusPaid {
		a.summary.Earnings = a.summary.Earnings.Sub(amount)
		a.summary.PaidOut = a.summary.PaidOut.Add(amount)
		row.Paid = row.Paid.Add(amount)
		row.Net = row.Net.Sub(amount)
		txn.Net = amount.Neg()
	}
	a.txns = append(a.txns, txn)
}

// SellerBalance is what a seller may still request: the ledger net less every
// payout that is already on its way.
func SellerBalance(row SupplierRow, payouts []payout_models.PayoutRequest) decimal.Decimal {
	available := row.Net
	for _, p := range payouts {
		if p.SellerID == row.SellerID && p.Status.InFlight() {
			available = available.Sub(p.EffectiveAmount())
		}
	}
	return available
}
