package order_models

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListOrders returns orders created within dr, each with its line items and the
// seller of every item's product. When sellerID is set only orders with at
// least one item from that seller are returned.
func (r *Repository) ListOrders(ctx context.Context, dr DateRange, sellerID *uuid.UUID) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !dr.From.IsZero() {
		where = append(where, "o.created_at >= "+arg(dr.From))
	}
	if !dr.To.IsZero() {
		where = append(where, "o.created_at < "+arg(dr.To))
	}
	if sellerID != nil {
		where = append(where, `EXISTS (
			SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.seller_id = `+arg(*sellerID)+`)`)
	}

	query := `SELECT o.id, o.status, o.total_amount, o.created_at FROM orders o`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list orders: %v", err)
		return nil, utils.NewPersistenceError("list orders", err)
	}
	defer rows.Close()

	var (
		orders []Order
		ids    []uuid.UUID
	)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			o     Order
			total decimal.NullDecimal
		)
		if err := rows.Scan(&o.ID, &o.Status, &total, &o.CreatedAt); err != nil {
			logger.ErrorLogger.Errorf("Failed to scan order row: %v", err)
			return nil, utils.NewPersistenceError("scan order", err)
		}
		o.TotalAmount = total.Decimal
		index[o.ID] = len(orders)
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewPersistenceError("list orders", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT oi.order_id, oi.product_id, p.seller_id
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`, ids)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list order items: %v", err)
		return nil, utils.NewPersistenceError("list order items", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID uuid.UUID
			item    OrderItem
		)
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.SellerID); err != nil {
			return nil, utils.NewPersistenceError("scan order item", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, utils.NewPersistenceError("list order items", err)
	}

	logger.InfoLogger.Infof("Loaded %d orders for ledger", len(orders))
	return orders, nil
}
