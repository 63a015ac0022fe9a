package payout_service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/joy095/marketplace/models/seller_models"
	"github.com/joy095/marketplace/services/payout_events"
	"github.com/joy095/marketplace/utils"
	"github.com/joy095/marketplace/utils/mail"
	"github.com/shopspring/decimal"
)

type memStore struct {
	mu      sync.Mutex
	payouts map[uuid.UUID]payout_models.PayoutRequest
	writes  int
	// beforeUpdate runs inside UpdatePayoutIfUnchanged before the compare.
	beforeUpdate func(m *memStore)
	updateErr    error
}

func newMemStore(ps ...payout_models.PayoutRequest) *memStore {
	m := &memStore{payouts: make(map[uuid.UUID]payout_models.PayoutRequest)}
	for _, p := range ps {
		m.payouts[p.ID] = p
	}
	return m
}

func (m *memStore) ListPayouts(_ context.Context, filter payout_models.PayoutFilter) ([]payout_models.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payout_models.PayoutRequest
	for _, p := range m.payouts {
		if filter.SellerID == nil || *filter.SellerID == p.SellerID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *memStore) GetPayout(_ context.Context, id uuid.UUID) (*payout_models.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok {
		return nil, utils.ErrPayoutNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (m *memStore) CreatePayout(_ context.Context, p *payout_models.PayoutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payouts[p.ID] = p.Clone()
	m.writes++
	return nil
}

func (m *memStore) UpdatePayoutIfUnchanged(_ context.Context, next payout_models.PayoutRequest, expectedStatus payout_models.Status, expectedUpdatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeUpdate != nil {
		m.beforeUpdate(m)
	}
	if m.updateErr != nil {
		return false, m.updateErr
	}
	cur, ok := m.payouts[next.ID]
	if !ok || cur.Status != expectedStatus || !cur.UpdatedAt.Equal(expectedUpdatedAt) {
		return false, nil
	}
	m.payouts[next.ID] = next.Clone()
	m.writes++
	return true, nil
}

func (m *memStore) DeletePayout(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payouts[id]; !ok {
		return utils.ErrPayoutNotFound
	}
	delete(m.payouts, id)
	return nil
}

type sellerDir map[uuid.UUID]seller_models.Seller

func (d sellerDir) GetSeller(_ context.Context, id uuid.UUID) (*seller_models.Seller, error) {
	s, ok := d[id]
	if !ok {
		return nil, utils.ErrSellerNotFound
	}
	return &s, nil
}

type fixedBalance decimal.Decimal

func (b fixedBalance) AvailableBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.Decimal(b), nil
}

// reentrantBalance runs during while the balance is being read.
type reentrantBalance struct {
	amount decimal.Decimal
	during func()
}

func (b *reentrantBalance) AvailableBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	if b.during != nil {
		during := b.during
		b.during = nil
		during()
	}
	return b.amount, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []payout_events.PayoutChange
}

func (r *recordingPublisher) Publish(_ context.Context, c payout_events.PayoutChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

type fakeDisburser struct {
	transferID string
	err        error
	calls      []decimal.Decimal
	accounts   []string
	// onTransfer runs while the transfer is in flight.
	onTransfer func()
}

func (f *fakeDisburser) CreateTransfer(accountID string, amount decimal.Decimal, _ map[string]string) (string, error) {
	f.calls = append(f.calls, amount)
	f.accounts = append(f.accounts, accountID)
	if f.onTransfer != nil {
		f.onTransfer()
	}
	return f.transferID, f.err
}

type fakeMailer struct {
	sent []string
	data []mail.PayoutPaid
	err  error
}

func (f *fakeMailer) SendPayoutPaid(to string, data mail.PayoutPaid) error {
	f.sent = append(f.sent, to)
	f.data = append(f.data, data)
	return f.err
}

var errStoreDown = errors.New("store unavailable")
