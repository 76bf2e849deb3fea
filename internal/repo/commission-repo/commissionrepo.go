package commissionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

const commissionColumns = `id, sales_manager_id, order_id, order_total, commission_percent, commission_amount, status, created_at, approved_at, paid_at, cancelled_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

// Create inserts c unless the order already has a commission, in which case
// the stored one is returned with created=false.
func (r *Repository) Create(ctx context.Context, c *domain.Commission) (*domain.Commission, bool, error) {
	query := `
		INSERT INTO commissions (sales_manager_id, order_id, order_total, commission_percent, commission_amount, status, created_at, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING ` + commissionColumns

	created, err := scanCommission(r.db.QueryRow(ctx, query,
		c.SalesManagerID, c.OrderID, c.OrderTotal, c.CommissionPercent, c.CommissionAmount, string(c.Status), c.CreatedAt, c.ApprovedAt,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Error("can't save commission", zap.String("order_id", c.OrderID), zap.Error(err))
		return nil, false, err
	}

	existing, err := r.FindByOrderID(ctx, c.OrderID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("commission for order %s vanished after conflict", c.OrderID)
	}
	return existing, false, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions WHERE id = $1`
	c, err := scanCommission(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commission %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		zap.L().Error("can't find commission", zap.Int("commission_id", id), zap.Error(err))
		return nil, err
	}
	return c, nil
}

// FindByOrderID returns nil when the order has no commission.
func (r *Repository) FindByOrderID(ctx context.Context, orderID string) (*domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions WHERE order_id = $1`
	c, err := scanCommission(r.db.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find commission", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	return c, nil
}

// UpdateStatus moves the commission from one status to another and stamps the
// matching timestamp column. It fails with ErrInvalidTransition when the
// commission is no longer in status from.
func (r *Repository) UpdateStatus(ctx context.Context, id int, from, to domain.CommissionStatus, at time.Time) (*domain.Commission, error) {
	var stamp string
	switch to {
	case domain.CommissionApproved:
		stamp = ", approved_at = $4"
	case domain.CommissionPaid:
		stamp = ", paid_at = $4"
	case domain.CommissionCancelled:
		stamp = ", cancelled_at = $4"
	default:
		return nil, fmt.Errorf("%w: commission cannot move to %s", domain.ErrInvalidTransition, to)
	}
	query := `UPDATE commissions SET status = $3` + stamp + ` WHERE id = $1 AND status = $2 RETURNING ` + commissionColumns

	c, err := scanCommission(r.db.QueryRow(ctx, query, id, string(from), string(to), at))
	if errors.Is(err, pgx.ErrNoRows) {
		current, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: commission %d is %s", domain.ErrInvalidTransition, id, current.Status)
	}
	if err != nil {
		zap.L().Error("can't update commission", zap.Int("commission_id", id), zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	query := `SELECT ` + commissionColumns + ` FROM commissions
		WHERE id > $1 AND ($2 = 0 OR sales_manager_id = $2) AND (cardinality($3::text[]) = 0 OR status = ANY($3))
		ORDER BY id LIMIT $4`

	rows, err := r.db.Query(ctx, query, filter.AfterID, filter.SalesManagerID, statuses, filter.Limit)
	if err != nil {
		zap.L().Error("can't list commissions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			zap.L().Error("failed to scan commission row", zap.Error(err))
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCommission(row pgx.Row) (*domain.Commission, error) {
	var (
		c      domain.Commission
		status string
	)
	err := row.Scan(&c.ID, &c.SalesManagerID, &c.OrderID, &c.OrderTotal, &c.CommissionPercent, &c.CommissionAmount,
		&status, &c.CreatedAt, &c.ApprovedAt, &c.PaidAt, &c.CancelledAt)
	if err != nil {
		return nil, err
	}
	c.Status = domain.CommissionStatus(status)
	return &c, nil
}
