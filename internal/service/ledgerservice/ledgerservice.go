package ledgerservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
)

//go:generate mockgen -source=ledgerservice.go -destination=mock_ledgerservice.go -package=ledgerservice

const (
	DefaultLimit = 100
	MaxLimit     = 1000
	replayPage   = 500
)

// Create inserts unless the (payee, key) pair exists; then it returns the stored
// row with created=false.
type Repo interface {
	FindByKey(ctx context.Context, payeeID int, key string) (*domain.Transaction, error)
	Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, bool, error)
	ListByPayee(ctx context.Context, payeeID int, filter domain.TransactionFilter) ([]domain.Transaction, error)
	FindCorruptEarnings(ctx context.Context, limit int) ([]domain.Transaction, error)
	ListPayeeIDs(ctx context.Context) ([]int, error)
}

type ConflictRepo interface {
	SaveConflict(ctx context.Context, conflict *domain.LedgerConflict) error
	ListConflicts(ctx context.Context, limit int) ([]domain.LedgerConflict, error)
}

type Service struct {
	repo      Repo
	conflicts ConflictRepo
}

func New(repo Repo, conflicts ConflictRepo) *Service {
	return &Service{
		repo:      repo,
		conflicts: conflicts,
	}
}

func (s *Service) Validate(p domain.Posting) error {
	if p.PayeeID <= 0 {
		return domain.NewValidationError("invalid payee id %d", p.PayeeID)
	}
	if !p.Kind.Valid() {
		return domain.NewValidationError("unknown transaction kind %q", p.Kind)
	}
	if p.IdempotencyKey == "" {
		return domain.NewValidationError("idempotency key is required")
	}
	return domain.ValidateAmount(p.Amount)
}

// Find returns nil when no transaction carries the key.
func (s *Service) Find(ctx context.Context, payeeID int, key string) (*domain.Transaction, error) {
	tx, err := s.repo.FindByKey(ctx, payeeID, key)
	if err != nil {
		return nil, fmt.Errorf("find transaction %q: %w", key, err)
	}
	return tx, nil
}

// Append writes the posting once. A repeated key with the same payload returns
// the stored row with created=false; a different payload returns the stored row
// together with ErrLedgerConflict.
func (s *Service) Append(ctx context.Context, p domain.Posting) (*domain.Transaction, bool, error) {
	if err := s.Validate(p); err != nil {
		metrics.TransactionsPosted.WithLabelValues(string(p.Kind), "rejected").Inc()
		return nil, false, err
	}

	existing, err := s.Find(ctx, p.PayeeID, p.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		created, ok, err := s.repo.Create(ctx, &domain.Transaction{
			PayeeID:        p.PayeeID,
			Kind:           p.Kind,
			Amount:         p.Amount,
			OrderRef:       p.OrderRef,
			IdempotencyKey: p.IdempotencyKey,
			ExternalRef:    p.ExternalRef,
			Description:    p.Description,
			CreatedAt:      time.Now(),
		})
		if err != nil {
			return nil, false, fmt.Errorf("create transaction %q: %w", p.IdempotencyKey, err)
		}
		if ok {
			metrics.TransactionsPosted.WithLabelValues(string(p.Kind), "created").Inc()
			return created, true, nil
		}
		existing = created
	}

	if !existing.SamePayload(p) {
		metrics.TransactionsPosted.WithLabelValues(string(p.Kind), "rejected").Inc()
		return existing, false, fmt.Errorf("%w: key %q", domain.ErrLedgerConflict, p.IdempotencyKey)
	}
	metrics.TransactionsPosted.WithLabelValues(string(p.Kind), "duplicate").Inc()
	return existing, false, nil
}

// RecordConflict persists a rejected posting for reconciliation.
func (s *Service) RecordConflict(ctx context.Context, p domain.Posting, existing *domain.Transaction) error {
	conflict := &domain.LedgerConflict{
		PayeeID:        p.PayeeID,
		IdempotencyKey: p.IdempotencyKey,
		Kind:           p.Kind,
		Amount:         p.Amount,
		DetectedAt:     time.Now(),
	}
	if existing != nil {
		conflict.ExistingTransactionID = existing.ID
	}

	metrics.LedgerConflicts.Inc()
	zap.L().Warn("ledger conflict",
		zap.Int("payee_id", p.PayeeID),
		zap.String("idempotency_key", p.IdempotencyKey),
		zap.String("kind", string(p.Kind)),
		zap.String("amount", p.Amount.String()),
		zap.Int64("existing_transaction_id", conflict.ExistingTransactionID),
	)
	if err := s.conflicts.SaveConflict(ctx, conflict); err != nil {
		zap.L().Error("failed to save ledger conflict", zap.String("idempotency_key", p.IdempotencyKey), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) Conflicts(ctx context.Context, limit int) ([]domain.LedgerConflict, error) {
	return s.conflicts.ListConflicts(ctx, clampLimit(limit))
}

// ListFor returns one page of the payee's transactions, oldest first.
func (s *Service) ListFor(ctx context.Context, payeeID int, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if payeeID <= 0 {
		return nil, domain.NewValidationError("invalid payee id %d", payeeID)
	}
	for _, kind := range filter.Kinds {
		if !kind.Valid() {
			return nil, domain.NewValidationError("unknown transaction kind %q", kind)
		}
	}
	if filter.AfterID < 0 {
		return nil, domain.NewValidationError("negative cursor %d", filter.AfterID)
	}
	filter.Limit = clampLimit(filter.Limit)

	txs, err := s.repo.ListByPayee(ctx, payeeID, filter)
	if err != nil {
		zap.L().Error("failed to list transactions", zap.Int("payee_id", payeeID), zap.Error(err))
		return nil, err
	}
	return txs, nil
}

// ErrStop can be returned from a Replay callback to stop early.
var ErrStop = errors.New("stop replay")

// Replay feeds every transaction of the payee to fn in creation order.
func (s *Service) Replay(ctx context.Context, payeeID int, fn func(domain.Transaction) error) error {
	filter := domain.TransactionFilter{Limit: replayPage}
	for {
		page, err := s.repo.ListByPayee(ctx, payeeID, filter)
		if err != nil {
			return fmt.Errorf("replay payee %d: %w", payeeID, err)
		}
		for _, tx := range page {
			if err := fn(tx); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
			filter.AfterID = tx.ID
		}
		if len(page) < replayPage {
			return nil
		}
	}
}

func (s *Service) CorruptEarnings(ctx context.Context, limit int) ([]domain.Transaction, error) {
	return s.repo.FindCorruptEarnings(ctx, clampLimit(limit))
}

func (s *Service) PayeeIDs(ctx context.Context) ([]int, error) {
	return s.repo.ListPayeeIDs(ctx)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
