package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTXManager_Begin(t *testing.T) {
	tests := []struct {
		name      string
		fnErr     error
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "commits on success",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE balances").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
		},
		{
			name:  "rolls back when fn fails",
			fnErr: errors.New("boom"),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE balances").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "begin failure",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("no connection"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.mockSetup(mock)

			db := New(mock)
			manager := NewTXManager(mock)

			err = manager.Begin(context.Background(), func(ctx context.Context) error {
				_, ok := TxFromContext(ctx)
				assert.True(t, ok)
				if _, err := db.Exec(ctx, "UPDATE balances SET version = version + 1"); err != nil {
					return err
				}
				return tt.fnErr
			})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTXManager_NestedBeginJoinsOuter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	manager := NewTXManager(mock)
	calls := 0
	err = manager.Begin(context.Background(), func(ctx context.Context) error {
		return manager.Begin(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithoutTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE balances").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO ledger_conflicts").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	db := New(mock)
	manager := NewTXManager(mock)

	err = manager.Begin(context.Background(), func(ctx context.Context) error {
		if _, err := db.Exec(ctx, "UPDATE balances SET version = version + 1"); err != nil {
			return err
		}
		detached := WithoutTx(ctx)
		_, ok := TxFromContext(detached)
		assert.False(t, ok)
		if _, err := db.Exec(detached, "INSERT INTO ledger_conflicts DEFAULT VALUES"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.NoError(t, mock.ExpectationsWereMet())

	plain := context.Background()
	assert.Equal(t, plain, WithoutTx(plain))
}
