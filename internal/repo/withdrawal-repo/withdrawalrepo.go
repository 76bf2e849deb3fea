package withdrawalrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

const withdrawalColumns = `id, payee_id, amount, destination_account, status, external_ref, failure_reason, requested_at, dispatched_at, settled_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, w *domain.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, payee_id, amount, destination_account, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, w.ID, w.PayeeID, w.Amount, w.DestinationAccount, string(w.Status), w.RequestedAt)
	if err != nil {
		zap.L().Error("can't save withdrawal", zap.String("withdrawal_id", w.ID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	w, err := scanWithdrawal(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("withdrawal %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		zap.L().Error("can't find withdrawal", zap.String("withdrawal_id", id.String()), zap.Error(err))
		return nil, err
	}
	return w, nil
}

func (r *Repository) FindByExternalRef(ctx context.Context, externalRef string) (*domain.Withdrawal, error) {
	if externalRef == "" {
		return nil, fmt.Errorf("empty external ref: %w", domain.ErrNotFound)
	}
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE external_ref = $1`
	w, err := scanWithdrawal(r.db.QueryRow(ctx, query, externalRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("withdrawal with external ref %q: %w", externalRef, domain.ErrNotFound)
	}
	if err != nil {
		zap.L().Error("can't find withdrawal", zap.String("external_ref", externalRef), zap.Error(err))
		return nil, err
	}
	return w, nil
}

// ListByPayee returns the payee's withdrawals, newest first.
func (r *Repository) ListByPayee(ctx context.Context, payeeID int, limit int) ([]domain.Withdrawal, error) {
	query := `
        SELECT ` + withdrawalColumns + `
        FROM withdrawals
        WHERE payee_id = $1
        ORDER BY requested_at DESC
        LIMIT $2
    `
	return r.list(ctx, query, payeeID, limit)
}

// ListByStatus returns withdrawals in the given status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error) {
	query := `
        SELECT ` + withdrawalColumns + `
        FROM withdrawals
        WHERE status = $1
        ORDER BY requested_at
        LIMIT $2
    `
	return r.list(ctx, query, string(status), limit)
}

// Transition moves the withdrawal only if it is still in status from.
// Dispatching stamps dispatched_at, every other target stamps settled_at.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to domain.WithdrawalStatus, change domain.WithdrawalChange) (*domain.Withdrawal, error) {
	stamp := "settled_at"
	if to == domain.WithdrawalPending {
		stamp = "dispatched_at"
	}
	query := `UPDATE withdrawals SET status = $3, ` + stamp + ` = $4,
		failure_reason = CASE WHEN $5 = '' THEN failure_reason ELSE $5 END
		WHERE id = $1 AND status = $2
		RETURNING ` + withdrawalColumns

	w, err := scanWithdrawal(r.db.QueryRow(ctx, query, id, string(from), string(to), change.At, change.FailureReason))
	if errors.Is(err, pgx.ErrNoRows) {
		current, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: withdrawal %s is %s", domain.ErrInvalidTransition, id, current.Status)
	}
	if err != nil {
		zap.L().Error("can't update withdrawal", zap.String("withdrawal_id", id.String()), zap.Error(err))
		return nil, err
	}
	return w, nil
}

// SetExternalRef records the gateway reference once. Setting a different
// reference on a withdrawal that already has one fails.
func (r *Repository) SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error {
	query := `
		UPDATE withdrawals SET external_ref = $2
		WHERE id = $1 AND (external_ref = '' OR external_ref = $2)
	`
	tag, err := r.db.Exec(ctx, query, id, externalRef)
	if err != nil {
		zap.L().Error("can't set withdrawal external ref", zap.String("withdrawal_id", id.String()), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: withdrawal %s already has external ref %q", domain.ErrInvalidTransition, id, current.ExternalRef)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			zap.L().Error("failed to scan withdrawal row", zap.Error(err))
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var (
		w      domain.Withdrawal
		status string
	)
	err := row.Scan(&w.ID, &w.PayeeID, &w.Amount, &w.DestinationAccount, &status, &w.ExternalRef, &w.FailureReason,
		&w.RequestedAt, &w.DispatchedAt, &w.SettledAt)
	if err != nil {
		return nil, err
	}
	w.Status = domain.WithdrawalStatus(status)
	return &w, nil
}
