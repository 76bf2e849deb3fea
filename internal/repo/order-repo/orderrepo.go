package orderrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

const orderColumns = `order_id, payee_id, total_price, status, sales_ref_code, updated_at`

// paidStatuses are the order states that owe a sales commission.
var paidStatuses = []string{
	string(domain.OrderPaid),
	string(domain.OrderShipped),
	string(domain.OrderDelivered),
	string(domain.OrderCompleted),
}

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

// Upsert stores the order unless the stored copy is newer. The returned bool
// reports whether o was applied.
func (r *Repository) Upsert(ctx context.Context, o *domain.Order) (*domain.Order, bool, error) {
	query := `
		INSERT INTO orders (order_id, payee_id, total_price, status, sales_ref_code, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE
		SET payee_id = EXCLUDED.payee_id, total_price = EXCLUDED.total_price, status = EXCLUDED.status,
			sales_ref_code = EXCLUDED.sales_ref_code, updated_at = EXCLUDED.updated_at
		WHERE orders.updated_at <= EXCLUDED.updated_at
		RETURNING ` + orderColumns

	stored, err := scanOrder(r.db.QueryRow(ctx, query, o.OrderID, o.PayeeID, o.TotalPrice, string(o.Status), o.SalesRefCode, o.UpdatedAt))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Error("can't save order", zap.String("order_id", o.OrderID), zap.Error(err))
		return nil, false, err
	}

	current, err := r.FindByOrderID(ctx, o.OrderID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	o, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		zap.L().Error("can't find order", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	return o, nil
}

// FindMissingCommissions lists paid orders with a sales ref code and no
// commission, ordered by order id and starting after afterOrderID.
func (r *Repository) FindMissingCommissions(ctx context.Context, afterOrderID string, limit int) ([]domain.Order, error) {
	query := `
		SELECT o.order_id, o.payee_id, o.total_price, o.status, o.sales_ref_code, o.updated_at
		FROM orders o
		LEFT JOIN commissions c ON c.order_id = o.order_id
		WHERE c.id IS NULL AND o.sales_ref_code <> '' AND o.status = ANY($1) AND o.order_id > $2
		ORDER BY o.order_id
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, paidStatuses, afterOrderID, limit)
	if err != nil {
		zap.L().Error("can't get orders without commission", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			zap.L().Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.OrderID, &o.PayeeID, &o.TotalPrice, &status, &o.SalesRefCode, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
