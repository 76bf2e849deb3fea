package balanceservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

//go:generate mockgen -source=balanceservice.go -destination=mock_balanceservice.go -package=balanceservice

// BalanceRepo stores the live projection. GetBalance returns nil for a payee
// without one; UpdateBalance fails with domain.ErrVersionConflict when the
// stored version is not expectedVersion.
type BalanceRepo interface {
	GetBalance(ctx context.Context, payeeID int) (*domain.Balance, error)
	CreateBalance(ctx context.Context, balance *domain.Balance) error
	UpdateBalance(ctx context.Context, balance *domain.Balance, expectedVersion int64) error
	ListPayeeIDs(ctx context.Context) ([]int, error)
}

type Ledger interface {
	Find(ctx context.Context, payeeID int, key string) (*domain.Transaction, error)
	Append(ctx context.Context, p domain.Posting) (*domain.Transaction, bool, error)
	Replay(ctx context.Context, payeeID int, fn func(domain.Transaction) error) error
	RecordConflict(ctx context.Context, p domain.Posting, existing *domain.Transaction) error
	PayeeIDs(ctx context.Context) ([]int, error)
}

// DeltaFn mutates the balance copy it receives. Returning ErrUnchanged commits
// nothing and is not reported to the caller.
type DeltaFn func(ctx context.Context, balance *domain.Balance) error

var ErrUnchanged = errors.New("balance unchanged")

const DefaultMaxRetries = 5

type Service struct {
	balanceRepo BalanceRepo
	ledger      Ledger
	txManager   pg.TXManager
	locks       *payeeLocks
	maxRetries  int
}

func New(balanceRepo BalanceRepo, ledger Ledger, txManager pg.TXManager, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Service{
		balanceRepo: balanceRepo,
		ledger:      ledger,
		txManager:   txManager,
		locks:       newPayeeLocks(),
		maxRetries:  maxRetries,
	}
}

// GetBalance returns a zero balance for payees without transactions.
func (s *Service) GetBalance(ctx context.Context, payeeID int) (*domain.Balance, error) {
	if payeeID <= 0 {
		return nil, domain.NewValidationError("invalid payee id %d", payeeID)
	}
	balance, err := s.balanceRepo.GetBalance(ctx, payeeID)
	if err != nil {
		zap.L().Error("failed to get balance", zap.Int("payee_id", payeeID), zap.Error(err))
		return nil, err
	}
	if balance == nil {
		return domain.NewBalance(payeeID), nil
	}
	return balance, nil
}

// WithPayeeLock runs fn in a transaction inside the payee's serialized section.
func (s *Service) WithPayeeLock(ctx context.Context, payeeID int, fn pg.TransactionalFn) error {
	ctx, unlock, err := s.locks.Lock(ctx, payeeID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.txManager.Begin(ctx, fn)
}

// ApplyDelta is the only write path of the live balance: a read-modify-write
// under the payee lock, checked against available >= 0 and guarded by the
// version counter. Version conflicts are retried.
func (s *Service) ApplyDelta(ctx context.Context, payeeID int, fn DeltaFn) (*domain.Balance, error) {
	ctx, unlock, err := s.locks.Lock(ctx, payeeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		var result *domain.Balance
		err := s.txManager.Begin(ctx, func(ctx context.Context) error {
			current, exists, err := s.load(ctx, payeeID)
			if err != nil {
				return err
			}

			next := *current
			if err := fn(ctx, &next); err != nil {
				if errors.Is(err, ErrUnchanged) {
					result = current
					return nil
				}
				return err
			}
			if err := next.Check(); err != nil {
				return err
			}
			if err := s.store(ctx, &next, current.Version, exists); err != nil {
				return err
			}
			result = &next
			return nil
		})
		if errors.Is(err, domain.ErrVersionConflict) && attempt < s.maxRetries {
			metrics.BalanceRetries.Inc()
			zap.L().Debug("balance version conflict, retrying", zap.Int("payee_id", payeeID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// Post appends the posting and moves the balance in one transaction. A repeated
// posting returns the stored transaction and leaves the balance untouched.
func (s *Service) Post(ctx context.Context, p domain.Posting, hooks ...domain.PostHook) (*domain.Transaction, error) {
	var (
		posted   *domain.Transaction
		conflict *domain.Transaction
	)
	_, err := s.ApplyDelta(ctx, p.PayeeID, func(ctx context.Context, b *domain.Balance) error {
		existing, err := s.ledger.Find(ctx, p.PayeeID, p.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.SamePayload(p) {
				conflict = existing
				return fmt.Errorf("%w: key %q", domain.ErrLedgerConflict, p.IdempotencyKey)
			}
			posted = existing
			return ErrUnchanged
		}

		if err := b.Apply(p.Kind, p.Amount); err != nil {
			return err
		}
		if err := b.Check(); err != nil {
			return err
		}

		tx, created, err := s.ledger.Append(ctx, p)
		if err != nil {
			if errors.Is(err, domain.ErrLedgerConflict) {
				conflict = tx
			}
			return err
		}
		posted = tx
		if !created {
			return ErrUnchanged
		}

		for _, hook := range hooks {
			if err := hook(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, domain.ErrLedgerConflict) {
		// A nested Post shares the caller's transaction, which is about to
		// roll back with this error.
		if recErr := s.ledger.RecordConflict(pg.WithoutTx(ctx), p, conflict); recErr != nil {
			return nil, errors.Join(err, recErr)
		}
		return nil, err
	}
	if err != nil {
		if domain.IsBusinessError(err) {
			zap.L().Info("posting rejected",
				zap.Int("payee_id", p.PayeeID),
				zap.String("idempotency_key", p.IdempotencyKey),
				zap.String("kind", string(p.Kind)),
				zap.String("amount", p.Amount.String()),
				zap.Error(err),
			)
		} else {
			zap.L().Error("failed to post transaction", zap.String("idempotency_key", p.IdempotencyKey), zap.Error(err))
		}
		return nil, err
	}
	return posted, nil
}

// Recompute folds the payee's ledger into a fresh balance.
func (s *Service) Recompute(ctx context.Context, payeeID int) (*domain.Balance, error) {
	balance := domain.NewBalance(payeeID)
	err := s.ledger.Replay(ctx, payeeID, func(tx domain.Transaction) error {
		return balance.Apply(tx.Kind, tx.Amount)
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// Repair overwrites the live balance with the ledger's view when they differ.
// A nil anomaly means the balance was already consistent.
func (s *Service) Repair(ctx context.Context, payeeID int) (*domain.Anomaly, error) {
	var anomaly *domain.Anomaly
	_, err := s.ApplyDelta(ctx, payeeID, func(ctx context.Context, b *domain.Balance) error {
		fresh, err := s.Recompute(ctx, payeeID)
		if err != nil {
			return err
		}
		if b.SameAmounts(fresh) {
			return ErrUnchanged
		}

		anomaly = &domain.Anomaly{PayeeID: payeeID, Before: *b}
		b.TotalEarnings = fresh.TotalEarnings
		b.TotalWithdrawn = fresh.TotalWithdrawn
		b.PendingWithdrawals = fresh.PendingWithdrawals
		anomaly.After = *b
		return nil
	})
	if err != nil {
		zap.L().Error("failed to repair balance", zap.Int("payee_id", payeeID), zap.Error(err))
		return nil, err
	}
	if anomaly != nil {
		anomaly.After.Version = anomaly.Before.Version + 1
		metrics.ReconciliationAnomalies.WithLabelValues("balance_drift").Inc()
		zap.L().Warn("balance drift repaired",
			zap.Int("payee_id", payeeID),
			zap.Any("before", balanceFields(anomaly.Before)),
			zap.Any("after", balanceFields(anomaly.After)),
		)
	}
	return anomaly, nil
}

// PayeeIDs lists payees known to either the ledger or the projection.
func (s *Service) PayeeIDs(ctx context.Context) ([]int, error) {
	fromLedger, err := s.ledger.PayeeIDs(ctx)
	if err != nil {
		return nil, err
	}
	fromBalances, err := s.balanceRepo.ListPayeeIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(fromLedger))
	ids := make([]int, 0, len(fromLedger))
	for _, list := range [][]int{fromLedger, fromBalances} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Service) load(ctx context.Context, payeeID int) (*domain.Balance, bool, error) {
	balance, err := s.balanceRepo.GetBalance(ctx, payeeID)
	if err != nil {
		return nil, false, fmt.Errorf("load balance %d: %w", payeeID, err)
	}
	if balance == nil {
		return domain.NewBalance(payeeID), false, nil
	}
	return balance, true, nil
}

func (s *Service) store(ctx context.Context, b *domain.Balance, expectedVersion int64, exists bool) error {
	b.Version = expectedVersion + 1
	b.UpdatedAt = time.Now()
	if !exists {
		return s.balanceRepo.CreateBalance(ctx, b)
	}
	return s.balanceRepo.UpdateBalance(ctx, b, expectedVersion)
}

func balanceFields(b domain.Balance) map[string]string {
	return map[string]string{
		"total_earnings":      b.TotalEarnings.String(),
		"total_withdrawn":     b.TotalWithdrawn.String(),
		"pending_withdrawals": b.PendingWithdrawals.String(),
		"available":           b.Available().String(),
	}
}
