package memrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

func TestBeginRollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()
	ledger := store.Ledger()

	err := store.Begin(ctx, func(ctx context.Context) error {
		_, created, err := ledger.Create(ctx, &domain.Transaction{PayeeID: 1, Kind: domain.KindEarning, Amount: decimal.NewFromInt(5), IdempotencyKey: "k"})
		require.NoError(t, err)
		assert.True(t, created)
		return errors.New("boom")
	})
	require.Error(t, err)

	tx, err := ledger.FindByKey(ctx, 1, "k")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestConflictSurvivesRollback(t *testing.T) {
	store := New()
	ctx := context.Background()
	conflicts := store.Conflicts()

	err := store.Begin(ctx, func(ctx context.Context) error {
		require.NoError(t, conflicts.SaveConflict(ctx, &domain.LedgerConflict{PayeeID: 1, IdempotencyKey: "k"}))
		return domain.ErrLedgerConflict
	})
	require.ErrorIs(t, err, domain.ErrLedgerConflict)

	list, err := conflicts.ListConflicts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
}

func TestBeginCommitsAndNests(t *testing.T) {
	store := New()
	ctx := context.Background()
	balances := store.Balances()

	err := store.Begin(ctx, func(ctx context.Context) error {
		return store.Begin(ctx, func(ctx context.Context) error {
			return balances.CreateBalance(ctx, &domain.Balance{PayeeID: 3, Version: 1})
		})
	})
	require.NoError(t, err)

	b, err := balances.GetBalance(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, int64(1), b.Version)

	assert.ErrorIs(t, balances.UpdateBalance(ctx, &domain.Balance{PayeeID: 3, Version: 3}, 2), domain.ErrVersionConflict)
	assert.NoError(t, balances.UpdateBalance(ctx, &domain.Balance{PayeeID: 3, Version: 2}, 1))
}

func TestLedgerCreateIsIdempotent(t *testing.T) {
	ledger := New().Ledger()
	ctx := context.Background()

	first, created, err := ledger.Create(ctx, &domain.Transaction{PayeeID: 1, Kind: domain.KindEarning, Amount: decimal.NewFromInt(5), IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := ledger.Create(ctx, &domain.Transaction{PayeeID: 1, Kind: domain.KindEarning, Amount: decimal.NewFromInt(9), IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(5)))

	list, err := ledger.ListByPayee(ctx, 1, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWithdrawalTransitionGuard(t *testing.T) {
	repo := New().Withdrawals()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.Create(ctx, &domain.Withdrawal{ID: id, PayeeID: 1, Amount: decimal.NewFromInt(5), Status: domain.WithdrawalRequested, RequestedAt: time.Now()}))

	w, err := repo.Transition(ctx, id, domain.WithdrawalRequested, domain.WithdrawalPending, domain.WithdrawalChange{At: time.Now()})
	require.NoError(t, err)
	assert.NotNil(t, w.DispatchedAt)

	_, err = repo.Transition(ctx, id, domain.WithdrawalRequested, domain.WithdrawalCancelled, domain.WithdrawalChange{At: time.Now()})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, repo.SetExternalRef(ctx, id, "ref-1"))
	assert.ErrorIs(t, repo.SetExternalRef(ctx, id, "ref-2"), domain.ErrInvalidTransition)

	found, err := repo.FindByExternalRef(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
}

func TestOrderUpsertKeepsNewer(t *testing.T) {
	store := New()
	orders := store.Orders()
	ctx := context.Background()
	now := time.Now()

	_, applied, err := orders.Upsert(ctx, &domain.Order{OrderID: "A", Status: domain.OrderDelivered, SalesRefCode: "REF", UpdatedAt: now})
	require.NoError(t, err)
	assert.True(t, applied)

	stored, applied, err := orders.Upsert(ctx, &domain.Order{OrderID: "A", Status: domain.OrderPaid, UpdatedAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, domain.OrderDelivered, stored.Status)

	missing, err := orders.FindMissingCommissions(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, missing, 1)
	missing, err = orders.FindMissingCommissions(ctx, "A", 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, _, err = store.Commissions().Create(ctx, &domain.Commission{OrderID: "A", Status: domain.CommissionApproved})
	require.NoError(t, err)
	missing, err = orders.FindMissingCommissions(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
