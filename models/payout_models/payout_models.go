package payout_models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusRequested       Status = "requested"
	StatusProcessing      Status = "processing"
	StatusApprovalPending Status = "approval_pending"
	StatusPaid            Status = "paid"
	StatusCancelled       Status = "cancelled"
)

// AllStatuses lists the lifecycle in forward order.
var AllStatuses = []Status{StatusRequested, StatusProcessing, StatusApprovalPending, StatusPaid, StatusCancelled}

func (s Status) Valid() bool {
	return slices.Contains(AllStatuses, s)
}

// InFlight reports whether the payout is still moving towards paid.
func (s Status) InFlight() bool {
	return s == StatusRequested || s == StatusProcessing || s == StatusApprovalPending
}

type Action string

const (
	ActionAdvance  Action = "advance"
	ActionCancel   Action = "cancel"
	ActionMoveBack Action = "moveBack"
)

// NoteEntry is one line of a payout's audit trail.
type NoteEntry struct {
	Text      string `json:"text"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

// PayoutRequest is a settlement request from the platform to a seller.
type PayoutRequest struct {
	ID               uuid.UUID           `json:"id"`
	SellerID         uuid.UUID           `json:"seller_id"`
	SellerName       string              `json:"seller_name,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
	Additions        decimal.Decimal     `json:"additions"`
	Reductions       decimal.Decimal     `json:"reductions"`
	TotalPayable     decimal.NullDecimal `json:"total_payable"`
	AdjustmentReason string              `json:"adjustment_reason,omitempty"`
	Status           Status              `json:"status"`
	TransactionID    string              `json:"transaction_id,omitempty"`
	DisbursingAt     *time.Time          `json:"disbursing_at,omitempty"`
	Notes            []NoteEntry         `json:"notes"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// EffectiveAmount is the amount that moves when the payout is settled:
// totalPayable while the payout is approved or paid, the requested amount
// otherwise. A payout moved back before approval keeps its old totalPayable
// for the record, but it no longer counts.
func (p PayoutRequest) EffectiveAmount() decimal.Decimal {
	if p.TotalPayable.Valid && (p.Status == StatusApprovalPending || p.Status == StatusPaid) {
		return p.TotalPayable.Decimal
	}
	return p.Amount
}

// Clone returns a copy that shares no mutable state with p.
func (p PayoutRequest) Clone() PayoutRequest {
	out := p
	out.Notes = slices.Clone(p.Notes)
	if p.DisbursingAt != nil {
		at := *p.DisbursingAt
		out.DisbursingAt = &at
	}
	return out
}

// DisbursementClaimTTL bounds how long a started transfer holds the payout.
const DisbursementClaimTTL = 15 * time.Minute

// Disbursing reports whether a transfer for p was started less than
// DisbursementClaimTTL before now and has not been settled or released.
func (p PayoutRequest) Disbursing(now time.Time) bool {
	return p.DisbursingAt != nil && now.Sub(*p.DisbursingAt) < DisbursementClaimTTL
}

// NewPayoutRequest creates a payout in the requested state.
func NewPayoutRequest(sellerID uuid.UUID, amount decimal.Decimal, actor, note string, now time.Time) (*PayoutRequest, error) {
	if sellerID == uuid.Nil {
		return nil, fmt.Errorf("seller id is required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payout amount must be positive")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for payout: %w", err)
	}

	text := "REQUESTED: Payout of " + amount.StringFixed(2) + " requested"
	if note = strings.TrimSpace(note); note != "" {
		text += " - " + note
	}

	now = now.UTC()
	return &PayoutRequest{
		ID:        id,
		SellerID:  sellerID,
		Amount:    amount,
		Status:    StatusRequested,
		Notes:     []NoteEntry{{Text: text, User: actorOrDefault(actor), Timestamp: formatTimestamp(now)}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
