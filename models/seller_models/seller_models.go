package seller_models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
)

type Seller struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	RazorpayAccountID string    `json:"-"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListSellers(ctx context.Context) ([]Seller, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(razorpay_account_id, '')
		FROM sellers ORDER BY name`)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list sellers: %v", err)
		return nil, utils.NewPersistenceError("list sellers", err)
	}
	defer rows.Close()

	var sellers []Seller
	for rows.Next() {
		var s Seller
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.RazorpayAccountID); err != nil {
			return nil, utils.NewPersistenceError("scan seller", err)
		}
		sellers = append(sellers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewPersistenceError("list sellers", err)
	}
	return sellers, nil
}

func (r *Repository) GetSeller(ctx context.Context, id uuid.UUID) (*Seller, error) {
	var s Seller
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(razorpay_account_id, '')
		FROM sellers WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Email, &s.RazorpayAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Seller with ID %s not found", id)
			return nil, utils.ErrSellerNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch seller %s: %v", id, err)
		return nil, utils.NewPersistenceError("get seller", err)
	}
	return &s, nil
}

// NameIndex maps seller id to display name.
func NameIndex(sellers []Seller) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(sellers))
	for _, s := range sellers {
		out[s.ID] = s.Name
	}
	return out
}
