package payout_models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
)

// PayoutFilter narrows ListPayouts. Zero values mean "no restriction".
type PayoutFilter struct {
	SellerID *uuid.UUID
	Statuses []Status
	From     time.Time
	To       time.Time
	Limit    int
}

// Repository persists payouts in Postgres.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const payoutColumns = `
	p.id, p.seller_id, COALESCE(s.name, ''), p.amount, p.additions, p.reductions, p.total_payable,
	COALESCE(p.adjustment_reason, ''), p.status, COALESCE(p.transaction_id, ''), p.disbursing_at, COALESCE(p.notes, ''),
	p.created_at, p.updated_at`

func scanPayout(row pgx.Row) (*PayoutRequest, error) {
	var (
		p     PayoutRequest
		notes string
	)
	err := row.Scan(
		&p.ID, &p.SellerID, &p.SellerName, &p.Amount, &p.Additions, &p.Reductions, &p.TotalPayable,
		&p.AdjustmentReason, &p.Status, &p.TransactionID, &p.DisbursingAt, &notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Notes = NormalizeNoteHistoryAt(notes, p.CreatedAt)
	return &p, nil
}

// ListPayouts returns payouts newest first, joined with the seller's display name.
func (r *Repository) ListPayouts(ctx context.Context, filter PayoutFilter) ([]PayoutRequest, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.SellerID != nil {
		where = append(where, "p.seller_id = "+arg(*filter.SellerID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "p.status = ANY("+arg(statuses)+")")
	}
	if !filter.From.IsZero() {
		where = append(where, "p.created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "p.created_at < "+arg(filter.To))
	}

	query := "SELECT " + payoutColumns + " FROM payouts p LEFT JOIN sellers s ON s.id = p.seller_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list payouts: %v", err)
		return nil, utils.NewPersistenceError("list payouts", err)
	}
	defer rows.Close()

	var payouts []PayoutRequest
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, utils.NewPersistenceError("scan payout", err)
		}
		payouts = append(payouts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewPersistenceError("list payouts", err)
	}
	return payouts, nil
}

// GetPayout reads a single payout. It is also the pre-commit re-read used to
// detect concurrent changes.
func (r *Repository) GetPayout(ctx context.Context, id uuid.UUID) (*PayoutRequest, error) {
	query := "SELECT " + payoutColumns + " FROM payouts p LEFT JOIN sellers s ON s.id = p.seller_id WHERE p.id = $1"

	p, err := scanPayout(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Payout with ID %s not found", id)
			return nil, utils.ErrPayoutNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch payout %s: %v", id, err)
		return nil, utils.NewPersistenceError("get payout", err)
	}
	return p, nil
}

// CreatePayout inserts a new payout.
func (r *Repository) CreatePayout(ctx context.Context, p *PayoutRequest) error {
	notes, err := EncodeNoteHistory(p.Notes)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO payouts (
			id, seller_id, amount, additions, reductions, total_payable,
			adjustment_reason, status, transaction_id, disbursing_at, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SellerID, p.Amount, p.Additions, p.Reductions, p.TotalPayable,
		p.AdjustmentReason, string(p.Status), p.TransactionID, p.DisbursingAt, notes,
		p.CreatedAt.Truncate(time.Microsecond), p.UpdatedAt.Truncate(time.Microsecond),
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert payout for seller %s: %v", p.SellerID, err)
		return utils.NewPersistenceError("create payout", err)
	}

	logger.InfoLogger.Infof("Payout %s created for seller %s", p.ID, p.SellerID)
	return nil
}

// UpdatePayoutIfUnchanged writes next only if the stored row still has
// expectedStatus and expectedUpdatedAt. It reports false when another writer
// got there first; nothing is written in that case.
func (r *Repository) UpdatePayoutIfUnchanged(ctx context.Context, next PayoutRequest, expectedStatus Status, expectedUpdatedAt time.Time) (bool, error) {
	notes, err := EncodeNoteHistory(next.Notes)
	if err != nil {
		return false, fmt.Errorf("failed to encode notes: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE payouts SET
			status = $3,
			additions = $4,
			reductions = $5,
			total_payable = $6,
			adjustment_reason = $7,
			transaction_id = $8,
			notes = $9,
			updated_at = $10,
			disbursing_at = $12
		WHERE id = $1 AND status = $2 AND updated_at = $11`,
		next.ID, string(expectedStatus),
		string(next.Status), next.Additions, next.Reductions, next.TotalPayable,
		next.AdjustmentReason, next.TransactionID, notes,
		next.UpdatedAt.Truncate(time.Microsecond), expectedUpdatedAt, next.DisbursingAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to update payout %s: %v", next.ID, err)
		return false, utils.NewPersistenceError("update payout", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeletePayout removes a payout outright. This is an admin affordance outside
// the settlement workflow.
func (r *Repository) DeletePayout(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payouts WHERE id = $1`, id)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to delete payout %s: %v", id, err)
		return utils.NewPersistenceError("delete payout", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrPayoutNotFound
	}
	logger.InfoLogger.Infof("Payout %s deleted", id)
	return nil
}
