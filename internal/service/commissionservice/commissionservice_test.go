package commissionservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	memrepo "github.com/GlebRadaev/payee-ledger/internal/repo/mem-repo"
	"github.com/GlebRadaev/payee-ledger/internal/service/balanceservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/ledgerservice"
)

const managerID = 50

type fixture struct {
	service  *Service
	balances *balanceservice.Service
	store    *memrepo.Store
}

func newFixture() *fixture {
	store := memrepo.New()
	store.AddSalesManager(domain.SalesManager{ID: managerID, RefCode: "REF-50", CommissionPercent: decimal.NewFromInt(15)})
	store.AddSalesManager(domain.SalesManager{ID: 51, RefCode: "REF-51"})

	ledger := ledgerservice.New(store.Ledger(), store.Conflicts())
	balances := balanceservice.New(store.Balances(), ledger, store, 5)
	service := New(store.Commissions(), store.Managers(), balances, decimal.NewFromInt(10))
	return &fixture{service: service, balances: balances, store: store}
}

func order(id string, status domain.OrderStatus, ref string) *domain.Order {
	return &domain.Order{
		OrderID:      id,
		PayeeID:      7,
		TotalPrice:   decimal.RequireFromString("200.10"),
		Status:       status,
		SalesRefCode: ref,
		UpdatedAt:    time.Now(),
	}
}

func (f *fixture) earnings(t *testing.T, payeeID int) decimal.Decimal {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), payeeID)
	require.NoError(t, err)
	return b.TotalEarnings
}

func TestAmount(t *testing.T) {
	tests := []struct {
		total, percent, want string
	}{
		{"200.10", "15", "30.02"},
		{"100", "10", "10"},
		{"0.05", "10", "0.01"},
		{"0.04", "10", "0"},
		{"999.99", "12.5", "125"},
	}
	for _, tt := range tests {
		t.Run(tt.total+"x"+tt.percent, func(t *testing.T) {
			got := Amount(decimal.RequireFromString(tt.total), decimal.RequireFromString(tt.percent))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestOnOrderCompletedSettledIsApprovedAndCredited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c, err := f.service.OnOrderCompleted(ctx, order("A-1", domain.OrderDelivered, "REF-50"))
		require.NoError(t, err)
		assert.Equal(t, domain.CommissionApproved, c.Status)
		assert.True(t, c.CommissionAmount.Equal(decimal.RequireFromString("30.02")))
	}

	list, err := f.service.List(ctx, domain.CommissionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, f.earnings(t, managerID).Equal(decimal.RequireFromString("30.02")))
}

func TestOnOrderCompletedPaidIsPendingThenApproved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.service.OnOrderCompleted(ctx, order("A-2", domain.OrderPaid, "REF-51"))
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionPending, c.Status)
	assert.True(t, c.CommissionPercent.Equal(decimal.NewFromInt(10)))
	assert.True(t, f.earnings(t, 51).IsZero())

	c, err = f.service.OnOrderCompleted(ctx, order("A-2", domain.OrderCompleted, "REF-51"))
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionApproved, c.Status)
	require.NotNil(t, c.ApprovedAt)
	assert.True(t, f.earnings(t, 51).Equal(decimal.RequireFromString("20.01")))
}

func TestOnOrderCompletedIgnored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.service.OnOrderCompleted(ctx, order("A-3", domain.OrderDelivered, ""))
	assert.NoError(t, err)
	assert.Nil(t, c)

	c, err = f.service.OnOrderCompleted(ctx, order("A-3", domain.OrderPending, "REF-50"))
	assert.NoError(t, err)
	assert.Nil(t, c)

	_, err = f.service.OnOrderCompleted(ctx, order("A-3", domain.OrderDelivered, "NOPE"))
	assert.ErrorIs(t, err, domain.ErrSalesManagerNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	approved, err := f.service.OnOrderCompleted(ctx, order("A-1", domain.OrderDelivered, "REF-50"))
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.True(t, f.earnings(t, managerID).IsZero())

	reversal, err := f.store.Ledger().FindByKey(ctx, managerID, domain.CommissionReversalKey("A-1"))
	require.NoError(t, err)
	require.NotNil(t, reversal)
	assert.Equal(t, domain.KindAdjustment, reversal.Kind)

	again, err := f.service.Cancel(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionCancelled, again.Status)

	_, err = f.service.Approve(ctx, approved.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelAfterWithdrawalIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	approved, err := f.service.OnOrderCompleted(ctx, order("A-1", domain.OrderDelivered, "REF-50"))
	require.NoError(t, err)
	_, err = f.balances.Post(ctx, domain.Posting{
		PayeeID:        managerID,
		Kind:           domain.KindWithdrawalReserved,
		Amount:         approved.CommissionAmount,
		IdempotencyKey: "withdrawal:x:reserve",
	})
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, approved.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	c, err := f.service.Get(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionApproved, c.Status)
}

func TestMarkPaidUpTo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, id := range []string{"A-1", "A-2", "A-3"} {
		o := order(id, domain.OrderDelivered, "REF-51")
		o.TotalPrice = decimal.NewFromInt(100)
		_, err := f.service.OnOrderCompleted(ctx, o)
		require.NoError(t, err)
	}

	marked, err := f.service.MarkPaidUpTo(ctx, 51, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	marked, err = f.service.MarkPaidUpTo(ctx, 51, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	marked, err = f.service.MarkPaidUpTo(ctx, 51, decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	paid, err := f.service.List(ctx, domain.CommissionFilter{Statuses: []domain.CommissionStatus{domain.CommissionPaid}})
	require.NoError(t, err)
	assert.Len(t, paid, 3)

	_, err = f.service.Cancel(ctx, paid[0].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestListValidatesStatus(t *testing.T) {
	f := newFixture()
	_, err := f.service.List(context.Background(), domain.CommissionFilter{Statuses: []domain.CommissionStatus{"LOST"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOnOrderCompletedRepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	managers := NewMockManagerRepo(ctrl)
	poster := NewMockPoster(ctrl)
	service := New(repo, managers, poster, decimal.NewFromInt(10))

	repo.EXPECT().FindByOrderID(gomock.Any(), "A-1").Return(nil, nil)
	managers.EXPECT().FindByRefCode(gomock.Any(), "REF-50").Return(&domain.SalesManager{ID: managerID}, nil)
	poster.EXPECT().WithPayeeLock(gomock.Any(), managerID, gomock.Any()).Return(errors.New("db down"))

	_, err := service.OnOrderCompleted(context.Background(), order("A-1", domain.OrderDelivered, "REF-50"))
	assert.EqualError(t, err, "db down")
}

func TestOnOrderCompletedConflictIsRecorded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.balances.Post(ctx, domain.Posting{
		PayeeID:        managerID,
		Kind:           domain.KindEarning,
		Amount:         decimal.NewFromInt(1),
		IdempotencyKey: domain.CommissionKey("A-9"),
	})
	require.NoError(t, err)

	_, err = f.service.OnOrderCompleted(ctx, order("A-9", domain.OrderDelivered, "REF-50"))
	assert.ErrorIs(t, err, domain.ErrLedgerConflict)

	conflicts, err := f.store.Conflicts().ListConflicts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, domain.CommissionKey("A-9"), conflicts[0].IdempotencyKey)
	assert.Equal(t, managerID, conflicts[0].PayeeID)

	list, err := f.service.List(ctx, domain.CommissionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
