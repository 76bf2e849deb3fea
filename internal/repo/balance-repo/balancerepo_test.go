package balancerepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_GetBalance(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	columns := []string{"payee_id", "total_earnings", "total_withdrawn", "pending_withdrawals", "version", "updated_at"}

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantNil   bool
		expectErr bool
	}{
		{
			name: "balance found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM balances`)).
					WithArgs(7).
					WillReturnRows(pgxmock.NewRows(columns).AddRow(7, "90", "0", "90", int64(2), now))
			},
		},
		{
			name: "no balance yet",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM balances`)).
					WithArgs(7).
					WillReturnRows(pgxmock.NewRows(columns))
			},
			wantNil: true,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM balances`)).
					WithArgs(7).
					WillReturnError(errors.New("database error"))
			},
			wantNil:   true,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := NewMock(t)
			tt.mockSetup(mock)

			b, err := repo.GetBalance(ctx, 7)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, b)
			} else {
				require.NotNil(t, b)
				assert.True(t, b.Available().IsZero())
				assert.Equal(t, int64(2), b.Version)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_CreateBalance(t *testing.T) {
	ctx := context.Background()
	b := domain.NewBalance(7)
	b.Version = 1

	tests := []struct {
		name    string
		result  pgconn.CommandTag
		err     error
		wantErr error
	}{
		{name: "created", result: pgxmock.NewResult("INSERT", 1)},
		{name: "created concurrently", result: pgxmock.NewResult("INSERT", 0), wantErr: domain.ErrVersionConflict},
		{name: "check violation", err: &pgconn.PgError{Code: checkViolation}, wantErr: domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := NewMock(t)
			exp := mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (payee_id) DO NOTHING`)).
				WithArgs(7, b.TotalEarnings, b.TotalWithdrawn, b.PendingWithdrawals, int64(1), b.UpdatedAt)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.CreateBalance(ctx, b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_UpdateBalance(t *testing.T) {
	ctx := context.Background()
	b := &domain.Balance{
		PayeeID:            7,
		TotalEarnings:      decimal.NewFromInt(90),
		TotalWithdrawn:     decimal.Zero,
		PendingWithdrawals: decimal.NewFromInt(90),
		Version:            3,
		UpdatedAt:          time.Now(),
	}

	t.Run("version matches", func(t *testing.T) {
		repo, mock := NewMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`WHERE payee_id = $1 AND version = $7`)).
			WithArgs(7, b.TotalEarnings, b.TotalWithdrawn, b.PendingWithdrawals, int64(3), b.UpdatedAt, int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		assert.NoError(t, repo.UpdateBalance(ctx, b, 2))
	})

	t.Run("stale version", func(t *testing.T) {
		repo, mock := NewMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE balances`)).
			WithArgs(7, b.TotalEarnings, b.TotalWithdrawn, b.PendingWithdrawals, int64(3), b.UpdatedAt, int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		assert.ErrorIs(t, repo.UpdateBalance(ctx, b, 2), domain.ErrVersionConflict)
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := NewMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE balances`)).WillReturnError(errors.New("database error"))
		err := repo.UpdateBalance(ctx, b, 2)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrVersionConflict)
	})
}

func TestRepository_ListPayeeIDs(t *testing.T) {
	repo, mock := NewMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payee_id FROM balances`)).
		WillReturnRows(pgxmock.NewRows([]string{"payee_id"}).AddRow(3).AddRow(9))

	ids, err := repo.ListPayeeIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 9}, ids)
}
