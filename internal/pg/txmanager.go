package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

//go:generate mockgen -source=txmanager.go -destination=mock_txmanager.go -package=pg

type TransactionalFn func(ctx context.Context) error

type TXManager interface {
	Begin(ctx context.Context, fn TransactionalFn) error
}

type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// WithoutTx detaches ctx from its transaction, so writes made with it commit
// on their own even if the surrounding transaction rolls back.
func WithoutTx(ctx context.Context) context.Context {
	if _, ok := TxFromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, nil)
}

type txManager struct {
	db Beginner
}

func NewTXManager(db Beginner) TXManager {
	return &txManager{db: db}
}

// Begin runs fn in a transaction. Nested calls join the outer transaction.
func (m *txManager) Begin(ctx context.Context, fn TransactionalFn) (err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				zap.L().Error("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
