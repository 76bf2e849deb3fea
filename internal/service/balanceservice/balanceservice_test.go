package balanceservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
	memrepo "github.com/GlebRadaev/payee-ledger/internal/repo/mem-repo"
	"github.com/GlebRadaev/payee-ledger/internal/service/ledgerservice"
)

func newInMemory() (*Service, *memrepo.Store) {
	store := memrepo.New()
	ledger := ledgerservice.New(store.Ledger(), store.Conflicts())
	return New(store.Balances(), ledger, store, 5), store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func posting(kind domain.TransactionKind, amount, key string) domain.Posting {
	return domain.Posting{PayeeID: 1, Kind: kind, Amount: dec(amount), IdempotencyKey: key}
}

func assertBalance(t *testing.T, b *domain.Balance, earnings, withdrawn, pending, available string) {
	t.Helper()
	assert.True(t, b.TotalEarnings.Equal(dec(earnings)), "earnings %s", b.TotalEarnings)
	assert.True(t, b.TotalWithdrawn.Equal(dec(withdrawn)), "withdrawn %s", b.TotalWithdrawn)
	assert.True(t, b.PendingWithdrawals.Equal(dec(pending)), "pending %s", b.PendingWithdrawals)
	assert.True(t, b.Available().Equal(dec(available)), "available %s", b.Available())
}

func TestEarnWithdrawSettle(t *testing.T) {
	service, _ := newInMemory()
	ctx := context.Background()

	_, err := service.Post(ctx, posting(domain.KindEarning, "90", domain.EarningKey("A-1")))
	require.NoError(t, err)

	_, err = service.Post(ctx, posting(domain.KindWithdrawalReserved, "90", "w1:reserve"))
	require.NoError(t, err)
	b, err := service.GetBalance(ctx, 1)
	require.NoError(t, err)
	assertBalance(t, b, "90", "0", "90", "0")

	_, err = service.Post(ctx, posting(domain.KindWithdrawalSettled, "90", "w1:settle"))
	require.NoError(t, err)
	b, err = service.GetBalance(ctx, 1)
	require.NoError(t, err)
	assertBalance(t, b, "90", "90", "0", "0")

	fresh, err := service.Recompute(ctx, 1)
	require.NoError(t, err)
	assert.True(t, fresh.SameAmounts(b))
}

func TestRetriedEarningCountsOnce(t *testing.T) {
	service, _ := newInMemory()
	ctx := context.Background()

	first, err := service.Post(ctx, posting(domain.KindEarning, "90", domain.EarningKey("A-1")))
	require.NoError(t, err)
	second, err := service.Post(ctx, posting(domain.KindEarning, "90", domain.EarningKey("A-1")))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	b, err := service.GetBalance(ctx, 1)
	require.NoError(t, err)
	assertBalance(t, b, "90", "0", "0", "90")
	assert.Equal(t, int64(1), b.Version)
}

func TestReservationBeyondAvailableIsRejected(t *testing.T) {
	service, store := newInMemory()
	ctx := context.Background()

	_, err := service.Post(ctx, posting(domain.KindEarning, "30", domain.EarningKey("A-1")))
	require.NoError(t, err)

	hookCalled := false
	_, err = service.Post(ctx, posting(domain.KindWithdrawalReserved, "50", "w1:reserve"),
		func(context.Context, *domain.Transaction) error {
			hookCalled = true
			return nil
		})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.False(t, hookCalled)

	tx, err := store.Ledger().FindByKey(ctx, 1, "w1:reserve")
	require.NoError(t, err)
	assert.Nil(t, tx)

	b, err := service.GetBalance(ctx, 1)
	require.NoError(t, err)
	assertBalance(t, b, "30", "0", "0", "30")
}

func TestHookFailureRollsBackPosting(t *testing.T) {
	service, store := newInMemory()
	ctx := context.Background()

	_, err := service.Post(ctx, posting(domain.KindEarning, "10", "e1"), func(context.Context, *domain.Transaction) error {
		return errors.New("hook failed")
	})
	assert.EqualError(t, err, "hook failed")

	tx, err := store.Ledger().FindByKey(ctx, 1, "e1")
	require.NoError(t, err)
	assert.Nil(t, tx)
	b, err := store.Balances().GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestConflictIsRecorded(t *testing.T) {
	service, store := newInMemory()
	ctx := context.Background()

	_, err := service.Post(ctx, posting(domain.KindEarning, "10", "e1"))
	require.NoError(t, err)
	_, err = service.Post(ctx, posting(domain.KindEarning, "11", "e1"))
	assert.ErrorIs(t, err, domain.ErrLedgerConflict)

	conflicts, err := store.Conflicts().ListConflicts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "e1", conflicts[0].IdempotencyKey)
	assert.NotZero(t, conflicts[0].ExistingTransactionID)

	b, err := service.GetBalance(ctx, 1)
	require.NoError(t, err)
	assertBalance(t, b, "10", "0", "0", "10")
}

func TestConcurrentReservationsNeverOverdraw(t *testing.T) {
	service, _ := newInMemory()
	ctx := context.Background()

	_, err := service.Post(ctx, posting(domain.KindEarning, "100", "e1"))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := posting(domain.KindWithdrawalReserved, "10", fmt.Sprintf("reserve-%d", i))
			if _, err := service.Post(ctx, p); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	b, err := service.GetBalance(ctx, 1)
	require.NoError(t, err)
	assertBalance(t, b, "100", "0", "100", "0")
}

func TestRepair(t *testing.T) {
	service, store := newInMemory()
	ctx := context.Background()

	_, err := service.Post(ctx, posting(domain.KindEarning, "90", "e1"))
	require.NoError(t, err)

	anomaly, err := service.Repair(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, anomaly)

	store.Balances().Overwrite(domain.Balance{
		PayeeID:            1,
		TotalEarnings:      dec("180"),
		TotalWithdrawn:     dec("0"),
		PendingWithdrawals: dec("0"),
		Version:            1,
	})

	anomaly, err = service.Repair(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, anomaly)
	assert.True(t, anomaly.Before.TotalEarnings.Equal(dec("180")))
	assert.True(t, anomaly.After.TotalEarnings.Equal(dec("90")))

	b, err := service.GetBalance(ctx, 1)
	require.NoError(t, err)
	assertBalance(t, b, "90", "0", "0", "90")
	assert.Equal(t, int64(2), b.Version)
}

func TestApplyDeltaRetriesVersionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	balanceRepo := NewMockBalanceRepo(ctrl)
	ledger := NewMockLedger(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	service := New(balanceRepo, ledger, txManager, 2)

	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) }).
		Times(2)

	stored := &domain.Balance{PayeeID: 1, TotalEarnings: dec("5"), TotalWithdrawn: dec("0"), PendingWithdrawals: dec("0"), Version: 4}
	balanceRepo.EXPECT().GetBalance(gomock.Any(), 1).Return(stored, nil).Times(2)
	gomock.InOrder(
		balanceRepo.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), int64(4)).Return(domain.ErrVersionConflict),
		balanceRepo.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), int64(4)).Return(nil),
	)

	b, err := service.ApplyDelta(context.Background(), 1, func(_ context.Context, b *domain.Balance) error {
		return b.Apply(domain.KindEarning, dec("1"))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.Version)
	assert.True(t, b.TotalEarnings.Equal(dec("6")))
}

func TestApplyDeltaGivesUpAfterRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	balanceRepo := NewMockBalanceRepo(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	service := New(balanceRepo, NewMockLedger(ctrl), txManager, 1)

	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) }).
		Times(2)
	balanceRepo.EXPECT().GetBalance(gomock.Any(), 1).Return(nil, nil).Times(2)
	balanceRepo.EXPECT().CreateBalance(gomock.Any(), gomock.Any()).Return(domain.ErrVersionConflict).Times(2)

	_, err := service.ApplyDelta(context.Background(), 1, func(_ context.Context, b *domain.Balance) error {
		return b.Apply(domain.KindEarning, dec("1"))
	})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestPayeeIDsMergesSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	balanceRepo := NewMockBalanceRepo(ctrl)
	ledger := NewMockLedger(ctrl)
	service := New(balanceRepo, ledger, pg.NewMockTXManager(ctrl), 0)

	ledger.EXPECT().PayeeIDs(gomock.Any()).Return([]int{1, 2}, nil)
	balanceRepo.EXPECT().ListPayeeIDs(gomock.Any()).Return([]int{2, 3}, nil)

	ids, err := service.PayeeIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)
}
