package balancerepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

// checkViolation is raised by balances_available_non_negative.
const checkViolation = "23514"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

// GetBalance returns nil when the payee has no balance row yet.
func (r *Repository) GetBalance(ctx context.Context, payeeID int) (*domain.Balance, error) {
	query := `
        SELECT payee_id, total_earnings, total_withdrawn, pending_withdrawals, version, updated_at
        FROM balances
        WHERE payee_id = $1
    `
	var balance domain.Balance
	err := r.db.QueryRow(ctx, query, payeeID).Scan(
		&balance.PayeeID, &balance.TotalEarnings, &balance.TotalWithdrawn, &balance.PendingWithdrawals, &balance.Version, &balance.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to get balance", zap.Int("payee_id", payeeID), zap.Error(err))
		return nil, err
	}
	return &balance, nil
}

// CreateBalance fails with ErrVersionConflict when another writer created the
// row first.
func (r *Repository) CreateBalance(ctx context.Context, balance *domain.Balance) error {
	query := `
        INSERT INTO balances (payee_id, total_earnings, total_withdrawn, pending_withdrawals, version, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (payee_id) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query,
		balance.PayeeID, balance.TotalEarnings, balance.TotalWithdrawn, balance.PendingWithdrawals, balance.Version, balance.UpdatedAt,
	)
	if err != nil {
		return classify(err, balance.PayeeID)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// UpdateBalance writes balance only if the stored version still equals
// expectedVersion.
func (r *Repository) UpdateBalance(ctx context.Context, balance *domain.Balance, expectedVersion int64) error {
	query := `
		UPDATE balances
		SET total_earnings = $2, total_withdrawn = $3, pending_withdrawals = $4, version = $5, updated_at = $6
		WHERE payee_id = $1 AND version = $7
	`
	tag, err := r.db.Exec(ctx, query,
		balance.PayeeID, balance.TotalEarnings, balance.TotalWithdrawn, balance.PendingWithdrawals, balance.Version, balance.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return classify(err, balance.PayeeID)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *Repository) ListPayeeIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.Query(ctx, `SELECT payee_id FROM balances ORDER BY payee_id`)
	if err != nil {
		zap.L().Error("failed to list balance payees", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func classify(err error, payeeID int) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
		return domain.ErrInsufficientBalance
	}
	zap.L().Error("failed to write balance", zap.Int("payee_id", payeeID), zap.Error(err))
	return err
}
