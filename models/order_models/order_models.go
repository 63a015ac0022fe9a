package order_models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending         = "pending"
	StatusProcessing      = "processing"
	StatusShipped         = "shipped"
	StatusPendingApproval = "pending_approval"
	StatusDelivered       = "delivered"
	StatusCancelled       = "cancelled"
	StatusDeliveryFailed  = "delivery_failed"
	StatusReturned        = "returned"
	StatusReturnRefund    = "return_refund"
)

type OrderItem struct {
	ProductID uuid.UUID     `json:"product_id"`
	SellerID  uuid.NullUUID `json:"seller_id"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderItem     `json:"items"`
}

// SellerID resolves the order's seller from its first line item.
func (o Order) SellerID() (uuid.UUID, bool) {
	if len(o.Items) == 0 || !o.Items[0].SellerID.Valid {
		return uuid.Nil, false
	}
	return o.Items[0].SellerID.UUID, true
}

// DateRange is half-open: From inclusive, To exclusive. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

const dateLayout = "2006-01-02"

// ParseDateRange reads inclusive YYYY-MM-DD bounds as a half-open UTC range.
// Either bound may be empty.
func ParseDateRange(from, to string) (DateRange, error) {
	var dr DateRange
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid from date %q: %w", from, err)
		}
		dr.From = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid to date %q: %w", to, err)
		}
		dr.To = t.AddDate(0, 0, 1)
	}
	if !dr.From.IsZero() && !dr.To.IsZero() && !dr.From.Before(dr.To) {
		return DateRange{}, fmt.Errorf("from date %s is after to date %s", from, to)
	}
	return dr, nil
}
