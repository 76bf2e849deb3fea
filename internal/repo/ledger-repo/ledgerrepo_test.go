package ledgerrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

var txColumns = []string{"id", "payee_id", "kind", "amount", "order_ref", "idempotency_key", "external_ref", "description", "created_at"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func TestRepository_FindByKey(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Transaction
		expectErr bool
	}{
		{
			name: "found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE payee_id = $1 AND idempotency_key = $2`)).
					WithArgs(7, "A-1:earning").
					WillReturnRows(pgxmock.NewRows(txColumns).AddRow(int64(1), 7, "earning", "90.00", "A-1", "A-1:earning", "", "", now))
			},
			want: &domain.Transaction{
				ID: 1, PayeeID: 7, Kind: domain.KindEarning, Amount: decimal.RequireFromString("90.00"),
				OrderRef: "A-1", IdempotencyKey: "A-1:earning", CreatedAt: now,
			},
		},
		{
			name: "missing",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE payee_id = $1`)).
					WithArgs(7, "A-1:earning").
					WillReturnRows(pgxmock.NewRows(txColumns))
			},
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions`)).
					WithArgs(7, "A-1:earning").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := NewMock(t)
			tt.mockSetup(mock)

			got, err := repo.FindByKey(ctx, 7, "A-1:earning")
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				if tt.want == nil {
					assert.Nil(t, got)
				} else {
					require.NotNil(t, got)
					assert.True(t, tt.want.Amount.Equal(got.Amount))
					got.Amount = tt.want.Amount
					assert.Equal(t, tt.want, got)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	amount := decimal.NewFromInt(90)
	tx := &domain.Transaction{PayeeID: 7, Kind: domain.KindEarning, Amount: amount, OrderRef: "A-1", IdempotencyKey: "A-1:earning", CreatedAt: now}

	t.Run("inserted", func(t *testing.T) {
		repo, mock := NewMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs(7, "earning", amount, "A-1", "A-1:earning", "", "", now).
			WillReturnRows(pgxmock.NewRows(txColumns).AddRow(int64(3), 7, "earning", "90", "A-1", "A-1:earning", "", "", now))

		got, created, err := repo.Create(ctx, tx)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(3), got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("key taken returns the stored row", func(t *testing.T) {
		repo, mock := NewMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (payee_id, idempotency_key) DO NOTHING`)).
			WithArgs(7, "earning", amount, "A-1", "A-1:earning", "", "", now).
			WillReturnRows(pgxmock.NewRows(txColumns))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE payee_id = $1 AND idempotency_key = $2`)).
			WithArgs(7, "A-1:earning").
			WillReturnRows(pgxmock.NewRows(txColumns).AddRow(int64(2), 7, "earning", "80", "A-1", "A-1:earning", "", "", now))

		got, created, err := repo.Create(ctx, tx)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(2), got.ID)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(80)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := NewMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WillReturnError(errors.New("database error"))

		_, _, err := repo.Create(ctx, tx)
		assert.Error(t, err)
	})
}

func TestRepository_ListByPayee(t *testing.T) {
	ctx := context.Background()
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`kind = ANY($3)`)).
		WithArgs(7, int64(10), []string{"earning", "adjustment"}, 50).
		WillReturnRows(pgxmock.NewRows(txColumns).
			AddRow(int64(11), 7, "earning", "10", "", "k1", "", "", now).
			AddRow(int64(12), 7, "adjustment", "5", "", "k2", "", "", now))

	got, err := repo.ListByPayee(ctx, 7, domain.TransactionFilter{
		AfterID: 10,
		Kinds:   []domain.TransactionKind{domain.KindEarning, domain.KindAdjustment},
		Limit:   50,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.KindAdjustment, got[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindCorruptEarnings(t *testing.T) {
	ctx := context.Background()
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE kind = $1 AND amount <= 0`)).
		WithArgs("earning", 100).
		WillReturnRows(pgxmock.NewRows(txColumns).AddRow(int64(4), 8, "earning", "0", "", "legacy", "", "", time.Now()))

	got, err := repo.FindCorruptEarnings(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].PayeeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListPayeeIDs(t *testing.T) {
	ctx := context.Background()
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT payee_id FROM transactions`)).
		WillReturnRows(pgxmock.NewRows([]string{"payee_id"}).AddRow(1).AddRow(7))

	ids, err := repo.ListPayeeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 7}, ids)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT payee_id`)).WillReturnError(errors.New("database error"))
	_, err = repo.ListPayeeIDs(ctx)
	assert.Error(t, err)
}

func TestConflictRepository(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewConflicts(mock)
	now := time.Now()
	amount := decimal.NewFromInt(11)

	conflict := &domain.LedgerConflict{PayeeID: 1, IdempotencyKey: "e1", Kind: domain.KindEarning, Amount: amount, ExistingTransactionID: 5, DetectedAt: now}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ledger_conflicts`)).
		WithArgs(1, "e1", "earning", amount, int64(5), now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	require.NoError(t, repo.SaveConflict(ctx, conflict))
	assert.Equal(t, int64(9), conflict.ID)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ledger_conflicts ORDER BY id DESC LIMIT $1`)).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payee_id", "idempotency_key", "kind", "amount", "existing_transaction_id", "detected_at"}).
			AddRow(int64(9), 1, "e1", "earning", "11", int64(5), now))
	list, err := repo.ListConflicts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.KindEarning, list[0].Kind)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ledger_conflicts`)).WillReturnError(errors.New("database error"))
	assert.Error(t, repo.SaveConflict(ctx, conflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}
