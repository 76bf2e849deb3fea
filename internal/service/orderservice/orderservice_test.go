package orderservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	memrepo "github.com/GlebRadaev/payee-ledger/internal/repo/mem-repo"
	"github.com/GlebRadaev/payee-ledger/internal/service/balanceservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/commissionservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/ledgerservice"
)

const (
	sellerID  = 7
	managerID = 50
)

type fixture struct {
	service     *Service
	balances    *balanceservice.Service
	commissions *commissionservice.Service
	ledger      *ledgerservice.Service
	store       *memrepo.Store
}

func newFixture() *fixture {
	store := memrepo.New()
	store.AddSalesManager(domain.SalesManager{ID: managerID, RefCode: "REF-50"})

	ledger := ledgerservice.New(store.Ledger(), store.Conflicts())
	balances := balanceservice.New(store.Balances(), ledger, store, 5)
	commissions := commissionservice.New(store.Commissions(), store.Managers(), balances, decimal.NewFromInt(10))
	return &fixture{
		service:     New(store.Orders(), balances, ledger, commissions),
		balances:    balances,
		commissions: commissions,
		ledger:      ledger,
		store:       store,
	}
}

func event(status domain.OrderStatus, at time.Time) *domain.Order {
	return &domain.Order{
		OrderID:      "A-1",
		PayeeID:      sellerID,
		TotalPrice:   decimal.NewFromInt(90),
		Status:       status,
		SalesRefCode: "REF-50",
		UpdatedAt:    at,
	}
}

func (f *fixture) balance(t *testing.T, payeeID int) *domain.Balance {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), payeeID)
	require.NoError(t, err)
	return b
}

func TestHandleOrderEventLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	start := time.Now()

	require.NoError(t, f.service.HandleOrderEvent(ctx, event(domain.OrderPaid, start)))
	assert.True(t, f.balance(t, sellerID).TotalEarnings.IsZero())

	list, err := f.commissions.List(ctx, domain.CommissionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.CommissionPending, list[0].Status)

	// delivered twice: at-least-once delivery
	for i := 0; i < 2; i++ {
		require.NoError(t, f.service.HandleOrderEvent(ctx, event(domain.OrderDelivered, start.Add(time.Minute))))
	}
	assert.True(t, f.balance(t, sellerID).TotalEarnings.Equal(decimal.NewFromInt(90)))
	assert.True(t, f.balance(t, managerID).TotalEarnings.Equal(decimal.NewFromInt(9)))

	list, err = f.commissions.List(ctx, domain.CommissionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.CommissionApproved, list[0].Status)

	require.NoError(t, f.service.HandleOrderEvent(ctx, event(domain.OrderRefunded, start.Add(2*time.Minute))))
	assert.True(t, f.balance(t, sellerID).TotalEarnings.IsZero())
	assert.True(t, f.balance(t, managerID).TotalEarnings.IsZero())

	c, err := f.commissions.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionCancelled, c.Status)
}

func TestHandleOrderEventStaleIgnored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, f.service.HandleOrderEvent(ctx, event(domain.OrderCancelled, now)))
	require.NoError(t, f.service.HandleOrderEvent(ctx, event(domain.OrderDelivered, now.Add(-time.Hour))))

	assert.True(t, f.balance(t, sellerID).TotalEarnings.IsZero())
	stored, err := f.service.Get(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, stored.Status)
}

func TestHandleOrderEventValidation(t *testing.T) {
	tests := []struct {
		name  string
		order domain.Order
	}{
		{name: "missing id", order: domain.Order{PayeeID: 1, Status: domain.OrderPaid}},
		{name: "bad payee", order: domain.Order{OrderID: "A", Status: domain.OrderPaid}},
		{name: "negative total", order: domain.Order{OrderID: "A", PayeeID: 1, TotalPrice: decimal.NewFromInt(-1), Status: domain.OrderPaid}},
		{name: "sub-cent total", order: domain.Order{OrderID: "A", PayeeID: 1, TotalPrice: decimal.RequireFromString("1.001"), Status: domain.OrderPaid}},
		{name: "unknown status", order: domain.Order{OrderID: "A", PayeeID: 1, Status: "lost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			err := f.service.HandleOrderEvent(context.Background(), &tt.order)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestBackfillCommissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.store.Orders().Upsert(ctx, event(domain.OrderDelivered, time.Now()))
	require.NoError(t, err)
	missing := event(domain.OrderPaid, time.Now())
	missing.OrderID = "A-2"
	missing.SalesRefCode = "UNKNOWN"
	_, _, err = f.store.Orders().Upsert(ctx, missing)
	require.NoError(t, err)

	created, failed, err := f.service.BackfillCommissions(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, failed)

	created, _, err = f.service.BackfillCommissions(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestBackfillCommissionsPagesPastFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, id := range []string{"A-0", "A-1"} {
		o := event(domain.OrderPaid, time.Now())
		o.OrderID = id
		o.SalesRefCode = "UNKNOWN"
		_, _, err := f.store.Orders().Upsert(ctx, o)
		require.NoError(t, err)
	}
	good := event(domain.OrderPaid, time.Now())
	good.OrderID = "B-1"
	_, _, err := f.store.Orders().Upsert(ctx, good)
	require.NoError(t, err)

	created, failed, err := f.service.BackfillCommissions(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, failed)

	c, err := f.commissions.List(ctx, domain.CommissionFilter{})
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, "B-1", c[0].OrderID)
}

func TestHandleOrderEventPostError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	poster := NewMockPoster(ctrl)
	commissions := NewMockCommissions(ctrl)
	service := New(repo, poster, NewMockLedger(ctrl), commissions)

	order := event(domain.OrderDelivered, time.Now())
	repo.EXPECT().Upsert(gomock.Any(), order).Return(order, true, nil)
	poster.EXPECT().Post(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
	commissions.EXPECT().OnOrderCompleted(gomock.Any(), order).Return(&domain.Commission{}, nil)

	err := service.HandleOrderEvent(context.Background(), order)
	assert.EqualError(t, err, "db down")
}

func TestHandleOrderEventRefundAfterWithdrawal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	start := time.Now()

	require.NoError(t, f.service.HandleOrderEvent(ctx, event(domain.OrderDelivered, start)))
	_, err := f.balances.Post(ctx, domain.Posting{
		PayeeID:        sellerID,
		Kind:           domain.KindWithdrawalReserved,
		Amount:         decimal.NewFromInt(90),
		IdempotencyKey: domain.WithdrawalReserveKey(uuid.New()),
	})
	require.NoError(t, err)

	err = f.service.HandleOrderEvent(ctx, event(domain.OrderRefunded, start.Add(time.Minute)))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	list, err := f.commissions.List(ctx, domain.CommissionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.CommissionCancelled, list[0].Status)
	assert.True(t, f.balance(t, managerID).TotalEarnings.IsZero())

	stored, err := f.service.Get(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderRefunded, stored.Status)
}

func TestHandleOrderEventCommissionErrorJoined(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	ledger := NewMockLedger(ctrl)
	commissions := NewMockCommissions(ctrl)
	service := New(repo, NewMockPoster(ctrl), ledger, commissions)

	order := event(domain.OrderCancelled, time.Now())
	repo.EXPECT().Upsert(gomock.Any(), order).Return(order, true, nil)
	ledger.EXPECT().Find(gomock.Any(), sellerID, domain.EarningKey("A-1")).Return(nil, errors.New("ledger down"))
	commissions.EXPECT().CancelForOrder(gomock.Any(), "A-1").Return(nil, errors.New("commissions down"))

	err := service.HandleOrderEvent(context.Background(), order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger down")
	assert.Contains(t, err.Error(), "commissions down")
}

// gatedRepo holds a delivered event right after its upsert until gate closes.
type gatedRepo struct {
	Repo
	upserted chan struct{}
	gate     chan struct{}
}

func (r *gatedRepo) Upsert(ctx context.Context, order *domain.Order) (*domain.Order, bool, error) {
	stored, applied, err := r.Repo.Upsert(ctx, order)
	if order.Status == domain.OrderDelivered {
		close(r.upserted)
		<-r.gate
	}
	return stored, applied, err
}

func TestHandleOrderEventSerializedPerOrder(t *testing.T) {
	f := newFixture()
	repo := &gatedRepo{Repo: f.store.Orders(), upserted: make(chan struct{}), gate: make(chan struct{})}
	f.service = New(repo, f.balances, f.ledger, f.commissions)
	ctx := context.Background()
	start := time.Now()

	delivered := make(chan error, 1)
	go func() { delivered <- f.service.HandleOrderEvent(ctx, event(domain.OrderDelivered, start)) }()
	<-repo.upserted

	refunded := make(chan error, 1)
	go func() { refunded <- f.service.HandleOrderEvent(ctx, event(domain.OrderRefunded, start.Add(time.Second))) }()

	select {
	case err := <-refunded:
		t.Fatalf("refund finished while the delivered event was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(repo.gate)
	require.NoError(t, <-delivered)
	require.NoError(t, <-refunded)

	assert.True(t, f.balance(t, sellerID).TotalEarnings.IsZero())
	assert.True(t, f.balance(t, managerID).TotalEarnings.IsZero())
	list, err := f.commissions.List(ctx, domain.CommissionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.CommissionCancelled, list[0].Status)
}
