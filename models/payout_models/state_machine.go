package payout_models

import (
	"fmt"
	"strings"
	"time"

	"github.com/joy095/marketplace/utils"
	"github.com/shopspring/decimal"
)

var forward = map[Status]Status{
	StatusRequested:       StatusProcessing,
	StatusProcessing:      StatusApprovalPending,
	StatusApprovalPending: StatusPaid,
}

var backward = map[Status]Status{
	StatusProcessing:      StatusRequested,
	StatusApprovalPending: StatusProcessing,
	StatusPaid:            StatusApprovalPending,
	StatusCancelled:       StatusRequested,
}

// TransitionContext carries the fields entered alongside an action.
type TransitionContext struct {
	Additions          decimal.Decimal
	Reductions         decimal.Decimal
	AdjustmentReason   string
	TransactionID      string
	CancellationReason string
	NoteText           string
	Actor              string
	// Confirmed must be set for moveBack.
	Confirmed bool
	Now       time.Time
}

func (tc TransitionContext) now() time.Time {
	if tc.Now.IsZero() {
		return time.Now().UTC()
	}
	return tc.Now.UTC()
}

// NextStatus reports where action would take a payout currently in from.
func NextStatus(from Status, action Action) (Status, bool) {
	switch action {
	case ActionAdvance:
		to, ok := forward[from]
		return to, ok
	case ActionCancel:
		if from.InFlight() {
			return StatusCancelled, true
		}
	case ActionMoveBack:
		to, ok := backward[from]
		return to, ok
	}
	return "", false
}

// AllowedActions lists the actions legal from status, in display order.
func AllowedActions(status Status) []Action {
	var out []Action
	for _, a := range []Action{ActionAdvance, ActionCancel, ActionMoveBack} {
		if _, ok := NextStatus(status, a); ok {
			out = append(out, a)
		}
	}
	return out
}

// ApplyTransition computes the state of payout after action. It never mutates
// payout; the caller persists the returned record. Every successful
// transition appends exactly one note and refreshes UpdatedAt.
func ApplyTransition(payout PayoutRequest, action Action, tc TransitionContext) (PayoutRequest, error) {
	target, ok := NextStatus(payout.Status, action)
	if !ok {
		return PayoutRequest{}, utils.NewValidationError("action", string(payout.Status),
			fmt.Sprintf("%s is not allowed from %s", action, payout.Status))
	}

	next := payout.Clone()
	var text string

	switch action {
	case ActionAdvance:
		switch target {
		case StatusApprovalPending:
			if tc.Additions.IsNegative() {
				return PayoutRequest{}, utils.NewValidationError("additions", string(payout.Status), "additions cannot be negative")
			}
			if tc.Reductions.IsNegative() {
				return PayoutRequest{}, utils.NewValidationError("reductions", string(payout.Status), "reductions cannot be negative")
			}
			total := payout.Amount.Add(tc.Additions).Sub(tc.Reductions)
			if total.IsNegative() {
				return PayoutRequest{}, utils.NewValidationError("reductions", string(payout.Status), "reductions exceed the payout amount")
			}

			next.Additions = tc.Additions
			next.Reductions = tc.Reductions
			next.TotalPayable = decimal.NewNullDecimal(total)
			next.AdjustmentReason = strings.TrimSpace(tc.AdjustmentReason)

			text = fmt.Sprintf("STATUS UPDATED: Moved to %s (additions %s, reductions %s, total payable %s)",
				target, tc.Additions.StringFixed(2), tc.Reductions.StringFixed(2), total.StringFixed(2))
			if next.AdjustmentReason != "" {
				text += "; reason: " + next.AdjustmentReason
			}

		case StatusPaid:
			txn := strings.TrimSpace(tc.TransactionID)
			if txn == "" {
				return PayoutRequest{}, utils.NewValidationError("transactionId", string(payout.Status),
					"a transaction ID is required to mark a payout as paid")
			}
			next.TransactionID = txn
			text = "PAID: Transaction ID " + txn

		default:
			text = fmt.Sprintf("STATUS UPDATED: Moved to %s", target)
		}

	case ActionCancel:
		reason := strings.TrimSpace(tc.CancellationReason)
		if reason == "" {
			return PayoutRequest{}, utils.NewValidationError("cancellationReason", string(payout.Status),
				"a reason is required to cancel a payout")
		}
		text = "CANCELLED: " + reason

	case ActionMoveBack:
		if !tc.Confirmed {
			return PayoutRequest{}, utils.NewValidationError("confirmed", string(payout.Status),
				"moving a payout back must be confirmed")
		}
		text = fmt.Sprintf("STATUS REVERTED: Moved back to %s", target)
	}

	if note := strings.TrimSpace(tc.NoteText); note != "" {
		text += " - " + note
	}

	now := tc.now()
	next.Status = target
	next.DisbursingAt = nil
	next.Notes = append(next.Notes, NoteEntry{Text: text, User: actorOrDefault(tc.Actor), Timestamp: formatTimestamp(now)})
	next.UpdatedAt = now
	return next, nil
}

// AddNote appends a free-form note without changing status.
func AddNote(payout PayoutRequest, text, actor string, now time.Time) (PayoutRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return PayoutRequest{}, utils.NewValidationError("noteText", string(payout.Status), "note text is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	next := payout.Clone()
	next.Notes = append(next.Notes, NoteEntry{Text: text, User: actorOrDefault(actor), Timestamp: formatTimestamp(now)})
	next.UpdatedAt = now.UTC()
	return next, nil
}
