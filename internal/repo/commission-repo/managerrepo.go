package commissionrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

// ManagerRepository reads the sales_managers projection kept by the account
// system.
type ManagerRepository struct {
	db pg.Database
}

func NewManagers(db pg.Database) *ManagerRepository {
	return &ManagerRepository{db: db}
}

func (r *ManagerRepository) FindByRefCode(ctx context.Context, refCode string) (*domain.SalesManager, error) {
	query := `SELECT id, ref_code, commission_percent FROM sales_managers WHERE ref_code = $1`

	var m domain.SalesManager
	err := r.db.QueryRow(ctx, query, refCode).Scan(&m.ID, &m.RefCode, &m.CommissionPercent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ref code %q: %w", refCode, domain.ErrSalesManagerNotFound)
	}
	if err != nil {
		zap.L().Error("can't find sales manager", zap.String("ref_code", refCode), zap.Error(err))
		return nil, err
	}
	return &m, nil
}
