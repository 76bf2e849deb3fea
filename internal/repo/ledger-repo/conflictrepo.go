package ledgerrepo

import (
	"context"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

type ConflictRepository struct {
	db pg.Database
}

func NewConflicts(db pg.Database) *ConflictRepository {
	return &ConflictRepository{db: db}
}

func (r *ConflictRepository) SaveConflict(ctx context.Context, conflict *domain.LedgerConflict) error {
	query := `
		INSERT INTO ledger_conflicts (payee_id, idempotency_key, kind, amount, existing_transaction_id, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.db.QueryRow(ctx, query,
		conflict.PayeeID, conflict.IdempotencyKey, string(conflict.Kind), conflict.Amount, conflict.ExistingTransactionID, conflict.DetectedAt,
	).Scan(&conflict.ID)
	if err != nil {
		zap.L().Error("can't save ledger conflict", zap.String("idempotency_key", conflict.IdempotencyKey), zap.Error(err))
		return err
	}
	return nil
}

// ListConflicts returns the most recent conflicts first.
func (r *ConflictRepository) ListConflicts(ctx context.Context, limit int) ([]domain.LedgerConflict, error) {
	query := `
		SELECT id, payee_id, idempotency_key, kind, amount, existing_transaction_id, detected_at
		FROM ledger_conflicts ORDER BY id DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		zap.L().Error("failed to fetch ledger conflicts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerConflict
	for rows.Next() {
		var (
			c    domain.LedgerConflict
			kind string
		)
		if err := rows.Scan(&c.ID, &c.PayeeID, &c.IdempotencyKey, &kind, &c.Amount, &c.ExistingTransactionID, &c.DetectedAt); err != nil {
			zap.L().Error("failed to scan ledger conflict row", zap.Error(err))
			return nil, err
		}
		c.Kind = domain.TransactionKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}
