package reconcileservice

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
)

//go:generate mockgen -source=reconcileservice.go -destination=mock_reconcileservice.go -package=reconcileservice

const (
	backfillBatch  = 500
	corruptLimit   = 100
	conflictsLimit = 100
)

type Balances interface {
	PayeeIDs(ctx context.Context) ([]int, error)
	Repair(ctx context.Context, payeeID int) (*domain.Anomaly, error)
}

type Orders interface {
	BackfillCommissions(ctx context.Context, batch int) (int, int, error)
}

type Ledger interface {
	CorruptEarnings(ctx context.Context, limit int) ([]domain.Transaction, error)
	Conflicts(ctx context.Context, limit int) ([]domain.LedgerConflict, error)
}

type Service struct {
	balances Balances
	orders   Orders
	ledger   Ledger
	workers  int
	running  atomic.Bool

	mu   sync.RWMutex
	last *domain.ReconciliationReport
}

func New(balances Balances, orders Orders, ledger Ledger, workers int) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{balances: balances, orders: orders, ledger: ledger, workers: workers}
}

// Start runs reconciliation every interval until ctx is done.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		zap.L().Info("reconciliation scheduler disabled")
		return
	}
	zap.L().Info("reconciliation scheduler started", zap.Duration("interval", interval))
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				zap.L().Info("context canceled, stopping reconciliation scheduler")
				return
			case <-ticker.C:
				if _, err := s.Run(ctx); err != nil && err != domain.ErrReconcileInProgress {
					zap.L().Error("reconciliation failed", zap.Error(err))
				}
			}
		}
	}()
}

// Run repairs every balance from the ledger, backfills missing commissions and
// reports corrupt earnings and unresolved ledger conflicts. Only one run is
// active at a time.
func (s *Service) Run(ctx context.Context) (*domain.ReconciliationReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrReconcileInProgress
	}
	defer s.running.Store(false)

	report := &domain.ReconciliationReport{StartedAt: time.Now()}
	defer func() {
		metrics.ReconciliationDuration.Observe(time.Since(report.StartedAt).Seconds())
	}()

	payees, err := s.balances.PayeeIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, payeeID := range payees {
		payeeID := payeeID
		g.Go(func() error {
			anomaly, err := s.balances.Repair(gctx, payeeID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// one broken payee must not stop the others
				zap.L().Error("payee reconciliation failed", zap.Int("payee_id", payeeID), zap.Error(err))
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			report.PayeesChecked++
			if anomaly != nil {
				report.Anomalies = append(report.Anomalies, *anomaly)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(report.Anomalies, func(i, j int) bool { return report.Anomalies[i].PayeeID < report.Anomalies[j].PayeeID })

	if report.CommissionsCreated, report.CommissionErrors, err = s.orders.BackfillCommissions(ctx, backfillBatch); err != nil {
		return nil, err
	}

	if report.CorruptEarnings, err = s.ledger.CorruptEarnings(ctx, corruptLimit); err != nil {
		return nil, err
	}
	for _, tx := range report.CorruptEarnings {
		metrics.ReconciliationAnomalies.WithLabelValues("corrupt_earning").Inc()
		zap.L().Error("corrupt earning needs manual review",
			zap.Int64("transaction_id", tx.ID),
			zap.Int("payee_id", tx.PayeeID),
			zap.String("amount", tx.Amount.String()),
		)
	}

	if report.OpenConflicts, err = s.ledger.Conflicts(ctx, conflictsLimit); err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now()
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	zap.L().Info("reconciliation finished",
		zap.Int("payees", report.PayeesChecked),
		zap.Int("anomalies", len(report.Anomalies)),
		zap.Int("commissions_created", report.CommissionsCreated),
		zap.Int("commission_errors", report.CommissionErrors),
		zap.Int("corrupt_earnings", len(report.CorruptEarnings)),
		zap.Int("open_conflicts", len(report.OpenConflicts)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// Last returns the report of the most recent completed run, or nil.
func (s *Service) Last() *domain.ReconciliationReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
