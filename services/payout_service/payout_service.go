package payout_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/seller_models"
	"github.com/joy095/marketplace/services/payout_events"
	"github.com/joy095/marketplace/utils"
	"github.com/joy095/marketplace/utils/mail"
	"github.com/shopspring/decimal"
)

var ErrNoProcessor = errors.New("no payment processor configured")

// statusDisbursing is reported in conflicts while a transfer holds the payout.
const statusDisbursing payout_models.Status = "disbursing"

const amendAttempts = 3

type PayoutStore interface {
	ListPayouts(ctx context.Context, filter payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error)
	GetPayout(ctx context.Context, id uuid.UUID) (*payout_models.PayoutRequest, error)
	CreatePayout(ctx context.Context, p *payout_models.PayoutRequest) error
	UpdatePayoutIfUnchanged(ctx context.Context, next payout_models.PayoutRequest, expectedStatus payout_models.Status, expectedUpdatedAt time.Time) (bool, error)
	DeletePayout(ctx context.Context, id uuid.UUID) error
}

type SellerDirectory interface {
	GetSeller(ctx context.Context, id uuid.UUID) (*seller_models.Seller, error)
}

// Disburser moves money to a seller's linked account and returns the
// processor's reference for the transfer.
type Disburser interface {
	CreateTransfer(accountID string, amount decimal.Decimal, notes map[string]string) (string, error)
}

type Mailer interface {
	SendPayoutPaid(toEmail string, data mail.PayoutPaid) error
}

// Locker serialises payout requests per seller so two requests cannot both
// spend the same available balance.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type BalanceReader interface {
	AvailableBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error)
}

type Service struct {
	store     PayoutStore
	sellers   SellerDirectory
	balances  BalanceReader
	events    payout_events.Publisher
	disburser Disburser
	mailer    Mailer
	locks     Locker
	now       func() time.Time
}

type Option func(*Service)

func WithDisburser(d Disburser) Option { return func(s *Service) { s.disburser = d } }

func WithMailer(m Mailer) Option { return func(s *Service) { s.mailer = m } }

func WithLocker(l Locker) Option { return func(s *Service) { s.locks = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store PayoutStore, sellers SellerDirectory, balances BalanceReader, events payout_events.Publisher, opts ...Option) *Service {
	s := &Service{
		store:    store,
		sellers:  sellers,
		balances: balances,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, filter payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error) {
	return s.store.ListPayouts(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*payout_models.PayoutRequest, error) {
	return s.store.GetPayout(ctx, id)
}

// RequestPayout opens a payout for sellerID. The amount may not exceed what
// the seller's ledger still has available. With a Locker configured the
// balance check and insert run under a per-seller lock; a concurrent request
// for the same seller fails with utils.ErrBusy.
func (s *Service) RequestPayout(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal, note, actor string) (*payout_models.PayoutRequest, error) {
	if !amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "", "amount must be greater than zero")
	}
	if _, err := s.sellers.GetSeller(ctx, sellerID); err != nil {
		return nil, err
	}

	if s.locks != nil {
		release, err := s.locks.Acquire(ctx, sellerID.String())
		if err != nil {
			if !errors.Is(err, utils.ErrBusy) {
				err = fmt.Errorf("failed to lock seller %s: %w", sellerID, err)
			}
			return nil, err
		}
		defer release()
	}

	available, err := s.balances.AvailableBalance(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(available) {
		return nil, utils.NewValidationError("amount", "",
			fmt.Sprintf("amount exceeds available balance of %s", available.StringFixed(2)))
	}

	p, err := payout_models.NewPayoutRequest(sellerID, amount, actor, note, s.now())
	if err != nil {
		return nil, utils.NewValidationError("amount", "", err.Error())
	}
	if err := s.store.CreatePayout(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, *p)
	return p, nil
}

// Transition applies action to the latest stored state of payout id. When
// expected is non-empty the caller's view must still match the stored status.
// Writes are compare-and-swap; a lost race is reported as a conflict and
// nothing is written. A payout with a transfer in flight cannot be moved.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action payout_models.Action, tc payout_models.TransitionContext, expected payout_models.Status) (*payout_models.PayoutRequest, error) {
	return s.transition(ctx, id, action, tc, expected, false)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action payout_models.Action, tc payout_models.TransitionContext, expected payout_models.Status, holdsClaim bool) (*payout_models.PayoutRequest, error) {
	current, err := s.store.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}

	if expected != "" && current.Status != expected {
		return nil, conflict(id, expected, current.Status)
	}
	if current.Status == payout_models.StatusCancelled && action != payout_models.ActionMoveBack {
		return nil, conflict(id, current.Status, current.Status)
	}
	if !holdsClaim && current.Disbursing(s.now()) {
		logger.WarnLogger.Warnf("Payout %s has a transfer in flight, refusing %s", id, action)
		return nil, conflict(id, current.Status, statusDisbursing)
	}

	if tc.Now.IsZero() {
		tc.Now = s.now()
	}
	next, err := payout_models.ApplyTransition(*current, action, tc)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, *current, next); err != nil {
		return nil, err
	}

	logger.InfoLogger.Infof("Payout %s moved %s -> %s by %s", id, current.Status, next.Status, tc.Actor)
	if next.Status == payout_models.StatusPaid {
		s.notifyPaid(ctx, next)
	}
	return &next, nil
}

// AddNote appends a note without changing status, under the same
// compare-and-swap rules as a transition.
func (s *Service) AddNote(ctx context.Context, id uuid.UUID, text, actor string) (*payout_models.PayoutRequest, error) {
	current, err := s.store.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := payout_models.AddNote(*current, text, actor, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, *current, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Disburse pays an approved payout through the payment processor and marks it
// paid with the processor's transfer id. The payout is claimed before any
// money moves, so a second disbursement or a concurrent cancel is rejected
// instead of racing the transfer.
func (s *Service) Disburse(ctx context.Context, id uuid.UUID, actor string) (*payout_models.PayoutRequest, error) {
	if s.disburser == nil {
		return nil, ErrNoProcessor
	}

	current, err := s.store.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != payout_models.StatusApprovalPending {
		return nil, utils.NewValidationError("action", string(current.Status), "only approved payouts can be disbursed")
	}
	if current.Disbursing(s.now()) {
		return nil, conflict(id, current.Status, statusDisbursing)
	}

	seller, err := s.sellers.GetSeller(ctx, current.SellerID)
	if err != nil {
		return nil, err
	}
	if seller.RazorpayAccountID == "" {
		return nil, utils.NewValidationError("seller", string(current.Status), "seller has no linked payout account")
	}

	claimed, err := s.claimDisbursement(ctx, *current, actor)
	if err != nil {
		return nil, err
	}

	transferID, err := s.disburser.CreateTransfer(seller.RazorpayAccountID, claimed.EffectiveAmount(), map[string]string{
		"payout_id": claimed.ID.String(),
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Transfer for payout %s failed: %v", id, err)
		s.releaseDisbursement(ctx, id, actor, err)
		return nil, fmt.Errorf("failed to disburse payout: %w", err)
	}
	logger.InfoLogger.Infof("Transfer %s created for payout %s", transferID, id)

	paid, err := s.transition(ctx, id, payout_models.ActionAdvance, payout_models.TransitionContext{
		TransactionID: transferID,
		NoteText:      "disbursed via Razorpay",
		Actor:         actor,
	}, payout_models.StatusApprovalPending, true)
	if err != nil {
		logger.ErrorLogger.Errorf("Transfer %s for payout %s was created but the payout was not marked paid: %v", transferID, id, err)
		s.recordTransfer(ctx, id, transferID, actor)
		return nil, fmt.Errorf("transfer %s created but payout not marked paid: %w", transferID, err)
	}
	return paid, nil
}

func (s *Service) claimDisbursement(ctx context.Context, current payout_models.PayoutRequest, actor string) (payout_models.PayoutRequest, error) {
	now := s.now()
	next, err := payout_models.AddNote(current,
		fmt.Sprintf("DISBURSING: Transfer of %s started", current.EffectiveAmount().StringFixed(2)), actor, now)
	if err != nil {
		return payout_models.PayoutRequest{}, err
	}
	next.DisbursingAt = &now
	if err := s.commit(ctx, current, next); err != nil {
		return payout_models.PayoutRequest{}, err
	}
	return next, nil
}

// releaseDisbursement drops the claim after a failed transfer so the payout
// can be retried or moved. Failure here only delays that until the claim
// expires.
func (s *Service) releaseDisbursement(ctx context.Context, id uuid.UUID, actor string, cause error) {
	err := s.amend(ctx, id, func(p payout_models.PayoutRequest) (payout_models.PayoutRequest, error) {
		next, err := payout_models.AddNote(p, "DISBURSEMENT FAILED: "+cause.Error(), actor, s.now())
		if err != nil {
			return p, err
		}
		next.DisbursingAt = nil
		return next, nil
	})
	if err != nil {
		logger.WarnLogger.Warnf("Failed to release disbursement claim on payout %s: %v", id, err)
	}
}

// recordTransfer keeps the processor reference on the payout when the money
// moved but the payout could not be marked paid.
func (s *Service) recordTransfer(ctx context.Context, id uuid.UUID, transferID, actor string) {
	err := s.amend(ctx, id, func(p payout_models.PayoutRequest) (payout_models.PayoutRequest, error) {
		next, err := payout_models.AddNote(p,
			fmt.Sprintf("TRANSFER CREATED: Transaction ID %s, payout not marked paid", transferID), actor, s.now())
		if err != nil {
			return p, err
		}
		next.TransactionID = transferID
		next.DisbursingAt = nil
		return next, nil
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to record transfer %s on payout %s: %v", transferID, id, err)
	}
}

// amend re-reads payout id and commits change, retrying lost races a few
// times.
func (s *Service) amend(ctx context.Context, id uuid.UUID, change func(payout_models.PayoutRequest) (payout_models.PayoutRequest, error)) error {
	var err error
	for attempt := 0; attempt < amendAttempts; attempt++ {
		var current *payout_models.PayoutRequest
		current, err = s.store.GetPayout(ctx, id)
		if err != nil {
			return err
		}
		var next payout_models.PayoutRequest
		next, err = change(*current)
		if err != nil {
			return err
		}
		err = s.commit(ctx, *current, next)
		var cc *utils.ConcurrencyConflictError
		if !errors.As(err, &cc) {
			return err
		}
	}
	return err
}

// Delete removes a payout outright. It bypasses the workflow and leaves no
// audit note.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	current, err := s.store.GetPayout(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePayout(ctx, id); err != nil {
		return err
	}
	logger.WarnLogger.Warnf("Payout %s (%s, %s) deleted by %s", id, current.Status, current.EffectiveAmount().StringFixed(2), actor)
	s.publish(ctx, *current)
	return nil
}

func (s *Service) commit(ctx context.Context, current, next payout_models.PayoutRequest) error {
	ok, err := s.store.UpdatePayoutIfUnchanged(ctx, next, current.Status, current.UpdatedAt)
	if err != nil {
		return err
	}
	if !ok {
		latest := current.Status
		if fresh, err := s.store.GetPayout(ctx, current.ID); err == nil {
			latest = fresh.Status
		}
		logger.WarnLogger.Warnf("Payout %s changed concurrently (was %s, now %s)", current.ID, current.Status, latest)
		return conflict(current.ID, current.Status, latest)
	}
	s.publish(ctx, next)
	return nil
}

func (s *Service) publish(ctx context.Context, p payout_models.PayoutRequest) {
	if s.events == nil {
		return
	}
	change := payout_events.PayoutChange{PayoutID: p.ID, Status: p.Status, At: s.now()}
	if err := s.events.Publish(ctx, change); err != nil {
		logger.WarnLogger.Warnf("Failed to publish change for payout %s: %v", p.ID, err)
	}
}

func (s *Service) notifyPaid(ctx context.Context, p payout_models.PayoutRequest) {
	if s.mailer == nil {
		return
	}
	seller, err := s.sellers.GetSeller(ctx, p.SellerID)
	if err != nil {
		logger.WarnLogger.Warnf("Skipping paid mail for payout %s: %v", p.ID, err)
		return
	}
	if seller.Email == "" {
		return
	}

	err = s.mailer.SendPayoutPaid(seller.Email, mail.PayoutPaid{
		SellerName:    seller.Name,
		PayoutID:      p.ID.String(),
		Amount:        p.EffectiveAmount(),
		TransactionID: p.TransactionID,
		PaidAt:        p.UpdatedAt,
	})
	if err != nil {
		logger.WarnLogger.Warnf("Paid mail for payout %s not sent: %v", p.ID, err)
	}
}

func conflict(id uuid.UUID, expected, current payout_models.Status) error {
	return &utils.ConcurrencyConflictError{
		PayoutID:       id.String(),
		ExpectedStatus: string(expected),
		CurrentStatus:  string(current),
	}
}
