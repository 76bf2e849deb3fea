package payouts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payee-ledger/internal/config"
	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

func newMock(t *testing.T) (*Service, *MockWithdrawals) {
	ctrl := gomock.NewController(t)
	withdrawals := NewMockWithdrawals(ctrl)
	cfg := &config.Config{PayoutWorkers: 2, PayoutBatch: 10, PayoutInterval: 10 * time.Millisecond}
	return New(cfg, withdrawals), withdrawals
}

func TestTick(t *testing.T) {
	s, withdrawals := newMock(t)
	ctx := context.Background()

	requested := []domain.Withdrawal{{ID: uuid.New()}, {ID: uuid.New()}}
	pending := []domain.Withdrawal{{ID: uuid.New()}}

	var wg sync.WaitGroup
	wg.Add(3)
	done := func(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
		defer wg.Done()
		return &domain.Withdrawal{ID: id}, nil
	}

	withdrawals.EXPECT().ListByStatus(ctx, domain.WithdrawalRequested, 10).Return(requested, nil)
	withdrawals.EXPECT().ListByStatus(ctx, domain.WithdrawalPending, 10).Return(pending, nil)
	withdrawals.EXPECT().Dispatch(ctx, requested[0].ID).DoAndReturn(done)
	withdrawals.EXPECT().Dispatch(ctx, requested[1].ID).DoAndReturn(done)
	withdrawals.EXPECT().Resolve(ctx, pending[0].ID).Return(nil, domain.ErrGatewayUnavailable).Do(
		func(context.Context, uuid.UUID) { wg.Done() },
	)

	s.Tick(ctx)
	wg.Wait()
	s.workerPool.Close()
}

func TestTickSkipsInFlight(t *testing.T) {
	s, withdrawals := newMock(t)
	ctx := context.Background()

	busy := domain.Withdrawal{ID: uuid.New()}
	s.processing.Store(busy.ID, struct{}{})

	withdrawals.EXPECT().ListByStatus(ctx, domain.WithdrawalRequested, 10).Return([]domain.Withdrawal{busy}, nil)
	withdrawals.EXPECT().ListByStatus(ctx, domain.WithdrawalPending, 10).Return(nil, assert.AnError)
	withdrawals.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Times(0)

	s.Tick(ctx)
	s.workerPool.Close()
}

func TestStartStopsOnCancel(t *testing.T) {
	s, withdrawals := newMock(t)
	ctx, cancel := context.WithCancel(context.Background())

	withdrawals.EXPECT().ListByStatus(gomock.Any(), gomock.Any(), 10).Return(nil, nil).AnyTimes()

	s.Start(ctx)
	time.Sleep(35 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
}
