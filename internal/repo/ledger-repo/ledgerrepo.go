package ledgerrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

const transactionColumns = `id, payee_id, kind, amount, order_ref, idempotency_key, external_ref, description, created_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

// FindByKey returns nil when no transaction carries the key.
func (r *Repository) FindByKey(ctx context.Context, payeeID int, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE payee_id = $1 AND idempotency_key = $2`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, payeeID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to find transaction", zap.Int("payee_id", payeeID), zap.String("idempotency_key", key), zap.Error(err))
		return nil, err
	}
	return tx, nil
}

// Create inserts tx unless its idempotency key is taken, in which case the
// stored row is returned with created=false.
func (r *Repository) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, bool, error) {
	query := `
		INSERT INTO transactions (payee_id, kind, amount, order_ref, idempotency_key, external_ref, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payee_id, idempotency_key) DO NOTHING
		RETURNING ` + transactionColumns

	created, err := scanTransaction(r.db.QueryRow(ctx, query,
		tx.PayeeID, string(tx.Kind), tx.Amount, tx.OrderRef, tx.IdempotencyKey, tx.ExternalRef, tx.Description, tx.CreatedAt,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Error("can't save transaction", zap.String("idempotency_key", tx.IdempotencyKey), zap.Error(err))
		return nil, false, err
	}

	existing, err := r.FindByKey(ctx, tx.PayeeID, tx.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("transaction vanished after idempotency conflict")
	}
	return existing, false, nil
}

func (r *Repository) ListByPayee(ctx context.Context, payeeID int, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	kinds := make([]string, 0, len(filter.Kinds))
	for _, k := range filter.Kinds {
		kinds = append(kinds, string(k))
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE payee_id = $1 AND id > $2 AND (cardinality($3::text[]) = 0 OR kind = ANY($3))
		ORDER BY id LIMIT $4`
	return r.list(ctx, query, payeeID, filter.AfterID, kinds, filter.Limit)
}

// FindCorruptEarnings returns earnings with a non-positive amount. Write-time
// validation prevents them, only legacy rows can match.
func (r *Repository) FindCorruptEarnings(ctx context.Context, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE kind = $1 AND amount <= 0 ORDER BY id LIMIT $2`
	return r.list(ctx, query, string(domain.KindEarning), limit)
}

func (r *Repository) ListPayeeIDs(ctx context.Context) ([]int, error) {
	return listInts(ctx, r.db, `SELECT DISTINCT payee_id FROM transactions ORDER BY payee_id`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("failed to fetch transactions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			zap.L().Error("failed to scan transaction row", zap.Error(err))
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx   domain.Transaction
		kind string
	)
	err := row.Scan(&tx.ID, &tx.PayeeID, &kind, &tx.Amount, &tx.OrderRef, &tx.IdempotencyKey, &tx.ExternalRef, &tx.Description, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	tx.Kind = domain.TransactionKind(kind)
	return &tx, nil
}

func listInts(ctx context.Context, db pg.Database, query string, args ...any) ([]int, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("failed to list ids", zap.Error(err))
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
