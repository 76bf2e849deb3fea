package payouts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/payee-ledger/internal/config"
	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

//go:generate mockgen -source=payouts.go -destination=mock_payouts.go -package=payouts

type Withdrawals interface {
	ListByStatus(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error)
	Dispatch(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	Resolve(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
}

// Service periodically hands REQUESTED withdrawals to the gateway and asks
// about PENDING ones whose callback never arrived.
type Service struct {
	withdrawals    Withdrawals
	workerPool     WorkerPoolI
	batch          int
	updateInterval time.Duration
	processing     sync.Map
}

const defaultInterval = 5 * time.Second

func New(cfg *config.Config, withdrawals Withdrawals) *Service {
	interval := cfg.PayoutInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		withdrawals:    withdrawals,
		workerPool:     NewWorkerPool(cfg.PayoutWorkers),
		batch:          cfg.PayoutBatch,
		updateInterval: interval,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("payout worker started", zap.Duration("interval", s.updateInterval))
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()
	defer s.workerPool.Close()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("context canceled, stopping payout worker")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one dispatch round and one resolve round.
func (s *Service) Tick(ctx context.Context) {
	s.process(ctx, domain.WithdrawalRequested, s.withdrawals.Dispatch)
	s.process(ctx, domain.WithdrawalPending, s.withdrawals.Resolve)
}

func (s *Service) process(ctx context.Context, status domain.WithdrawalStatus, handle func(context.Context, uuid.UUID) (*domain.Withdrawal, error)) {
	list, err := s.withdrawals.ListByStatus(ctx, status, s.batch)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.String("status", string(status)), zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, w := range list {
		id := w.ID
		if _, loaded := s.processing.LoadOrStore(id, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer s.processing.Delete(id)
				if _, err := handle(ctx, id); err != nil {
					zap.L().Warn("withdrawal not advanced",
						zap.String("withdrawal_id", id.String()),
						zap.String("status", string(status)),
						zap.Error(err),
					)
				}
				return nil
			})
			if err != nil {
				s.processing.Delete(id)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("error scheduling withdrawals", zap.Error(err))
	}
}
