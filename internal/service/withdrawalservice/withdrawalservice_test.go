package withdrawalservice

import (
	"context"
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
	"github.com/GlebRadaev/payee-ledger/internal/service/ledgerservice"
)

const (
	payeeID = 7
	account = "4561261212345467"
)

type fixture struct {
	service     *Service
	balances    *balanceservice.Service
	gateway     *MockGateway
	commissions *MockCommissionSettler
	store       *memrepo.Store
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	store := memrepo.New()
	ledger := ledgerservice.New(store.Ledger(), store.Conflicts())
	balances := balanceservice.New(store.Balances(), ledger, store, 5)
	gateway := NewMockGateway(ctrl)
	commissions := NewMockCommissionSettler(ctrl)
	service := New(store.Withdrawals(), balances, gateway, commissions, time.Hour)
	return &fixture{service: service, balances: balances, gateway: gateway, commissions: commissions, store: store}
}

func (f *fixture) earn(t *testing.T, amount string) {
	t.Helper()
	_, err := f.balances.Post(context.Background(), domain.Posting{
		PayeeID:        payeeID,
		Kind:           domain.KindEarning,
		Amount:         decimal.RequireFromString(amount),
		IdempotencyKey: domain.EarningKey("O-" + amount),
		OrderRef:       "O-" + amount,
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T) *domain.Balance {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), payeeID)
	require.NoError(t, err)
	return b
}

func (f *fixture) request(t *testing.T, amount string) *domain.Withdrawal {
	t.Helper()
	w, err := f.service.Request(context.Background(), RequestInput{
		PayeeID:            payeeID,
		Amount:             decimal.RequireFromString(amount),
		DestinationAccount: account,
	})
	require.NoError(t, err)
	return w
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "100")

	tests := []struct {
		name string
		in   RequestInput
	}{
		{"no payee", RequestInput{Amount: decimal.NewFromInt(1), DestinationAccount: account}},
		{"zero amount", RequestInput{PayeeID: payeeID, Amount: decimal.Zero, DestinationAccount: account}},
		{"three decimals", RequestInput{PayeeID: payeeID, Amount: decimal.RequireFromString("1.001"), DestinationAccount: account}},
		{"bad luhn", RequestInput{PayeeID: payeeID, Amount: decimal.NewFromInt(1), DestinationAccount: "4561261212345464"}},
		{"short account", RequestInput{PayeeID: payeeID, Amount: decimal.NewFromInt(1), DestinationAccount: "79927398713"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Request(context.Background(), tt.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assertMoney(t, "0", f.balance(t).PendingWithdrawals)
}

func TestRequestReservesAndRejectsOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "100")

	w := f.request(t, "90")
	assert.Equal(t, domain.WithdrawalRequested, w.Status)
	b := f.balance(t)
	assertMoney(t, "90", b.PendingWithdrawals)
	assertMoney(t, "10", b.Available())

	_, err := f.service.Request(ctx, RequestInput{PayeeID: payeeID, Amount: decimal.NewFromInt(20), DestinationAccount: account})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	list, err := f.service.List(ctx, payeeID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assertMoney(t, "90", f.balance(t).PendingWithdrawals)
}

func TestRequestRetryWithSameID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "100")

	in := RequestInput{PayeeID: payeeID, Amount: decimal.NewFromInt(40), DestinationAccount: "4561 2612 1234 5467", ID: uuid.New()}
	first, err := f.service.Request(ctx, in)
	require.NoError(t, err)
	second, err := f.service.Request(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, account, second.DestinationAccount)
	assertMoney(t, "40", f.balance(t).PendingWithdrawals)

	in.Amount = decimal.NewFromInt(41)
	_, err = f.service.Request(ctx, in)
	assert.ErrorIs(t, err, domain.ErrLedgerConflict)
}

func TestDispatchAndCallbackCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "90")
	w := f.request(t, "90")

	f.gateway.EXPECT().InitiatePayout(gomock.Any(), domain.PayoutRequest{
		Amount:             w.Amount,
		DestinationAccount: account,
		IdempotencyRef:     w.ID.String(),
	}).Return(&domain.Payout{ExternalRef: "po_1", Status: domain.PayoutPending}, nil)

	dispatched, err := f.service.Dispatch(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, dispatched.Status)
	assert.Equal(t, "po_1", dispatched.ExternalRef)
	assert.NotNil(t, dispatched.DispatchedAt)

	f.commissions.EXPECT().MarkPaidUpTo(gomock.Any(), payeeID, gomock.Any()).Return(0, nil).Times(1)

	for i := 0; i < 2; i++ {
		done, err := f.service.HandleCallback(ctx, "", "po_1", &domain.Payout{Status: domain.PayoutCompleted})
		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalCompleted, done.Status)
	}

	b := f.balance(t)
	assertMoney(t, "0", b.PendingWithdrawals)
	assertMoney(t, "90", b.TotalWithdrawn)
	assertMoney(t, "0", b.Available())

	_, err = f.service.HandleCallback(ctx, w.ID.String(), "po_1", &domain.Payout{Status: domain.PayoutFailed})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assertMoney(t, "90", f.balance(t).TotalWithdrawn)
}

func TestDispatchRejectedFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "50")
	w := f.request(t, "50")

	f.gateway.EXPECT().InitiatePayout(gomock.Any(), gomock.Any()).Return(nil, domain.ErrPayoutRejected)

	failed, err := f.service.Dispatch(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalFailed, failed.Status)
	assert.Contains(t, failed.FailureReason, "rejected")

	b := f.balance(t)
	assertMoney(t, "0", b.PendingWithdrawals)
	assertMoney(t, "50", b.Available())
}

func TestDispatchUnknownOutcomeThenResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "30")
	w := f.request(t, "30")

	f.gateway.EXPECT().InitiatePayout(gomock.Any(), gomock.Any()).Return(nil, domain.ErrPayoutOutcomeUnknown)
	pending, err := f.service.Dispatch(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, pending.Status)
	assertMoney(t, "30", f.balance(t).PendingWithdrawals)

	again, err := f.service.Dispatch(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, again.Status)

	f.gateway.EXPECT().LookupPayout(gomock.Any(), w.ID.String()).
		Return(&domain.Payout{ExternalRef: "po_9", Status: domain.PayoutCompleted}, nil)
	f.commissions.EXPECT().MarkPaidUpTo(gomock.Any(), payeeID, gomock.Any()).Return(0, nil)

	done, err := f.service.Resolve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCompleted, done.Status)
	assert.Equal(t, "po_9", done.ExternalRef)
	assertMoney(t, "30", f.balance(t).TotalWithdrawn)
}

func TestResolveNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "30")
	w := f.request(t, "30")

	f.gateway.EXPECT().InitiatePayout(gomock.Any(), gomock.Any()).Return(nil, domain.ErrGatewayUnavailable)
	_, err := f.service.Dispatch(ctx, w.ID)
	require.NoError(t, err)

	f.gateway.EXPECT().LookupPayout(gomock.Any(), w.ID.String()).Return(nil, domain.ErrPayoutNotFound).Times(2)

	fresh, err := f.service.Resolve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, fresh.Status)

	f.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	stale, err := f.service.Resolve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalFailed, stale.Status)
	assertMoney(t, "0", f.balance(t).PendingWithdrawals)
	assertMoney(t, "30", f.balance(t).Available())
}

func TestResolvePollsByExternalRef(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "30")
	w := f.request(t, "30")

	f.gateway.EXPECT().InitiatePayout(gomock.Any(), gomock.Any()).Return(&domain.Payout{ExternalRef: "po_2", Status: domain.PayoutPending}, nil)
	_, err := f.service.Dispatch(ctx, w.ID)
	require.NoError(t, err)

	f.gateway.EXPECT().PollStatus(gomock.Any(), "po_2").Return(&domain.Payout{ExternalRef: "po_2", Status: domain.PayoutFailed, Reason: "account closed"}, nil)
	failed, err := f.service.Resolve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalFailed, failed.Status)
	assert.Equal(t, "account closed", failed.FailureReason)

	f.gateway.EXPECT().PollStatus(gomock.Any(), gomock.Any()).Times(0)
	same, err := f.service.Resolve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalFailed, same.Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "100")
	first := f.request(t, "60")
	second := f.request(t, "40")

	_, err := f.service.Cancel(ctx, 8, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cancelled, err := f.service.Cancel(ctx, payeeID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCancelled, cancelled.Status)
	assertMoney(t, "40", f.balance(t).PendingWithdrawals)

	f.gateway.EXPECT().InitiatePayout(gomock.Any(), gomock.Any()).Return(&domain.Payout{ExternalRef: "po_3", Status: domain.PayoutPending}, nil)
	_, err = f.service.Dispatch(ctx, second.ID)
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, payeeID, second.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assertMoney(t, "40", f.balance(t).PendingWithdrawals)
}

func TestHandleCallbackUnknownWithdrawal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.HandleCallback(ctx, uuid.NewString(), "", &domain.Payout{Status: domain.PayoutCompleted})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.HandleCallback(ctx, "not-a-uuid", "", &domain.Payout{Status: domain.PayoutCompleted})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.service.HandleCallback(ctx, "", "", &domain.Payout{Status: domain.PayoutCompleted})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "100")
	f.request(t, "10")
	f.request(t, "20")

	requested, err := f.service.ListByStatus(ctx, domain.WithdrawalRequested, 5000)
	require.NoError(t, err)
	assert.Len(t, requested, 2)

	pending, err := f.service.ListByStatus(ctx, domain.WithdrawalPending, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
