package withdrawalservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
	"github.com/GlebRadaev/payee-ledger/pkg/validate"
)

//go:generate mockgen -source=withdrawalservice.go -destination=mock_withdrawalservice.go -package=withdrawalservice

const (
	defaultLimit      = 100
	maxLimit          = 1000
	DefaultStaleAfter = 24 * time.Hour
)

// Transition moves the withdrawal only if it is still in status from and fails
// with domain.ErrInvalidTransition otherwise.
type Repo interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	FindByExternalRef(ctx context.Context, externalRef string) (*domain.Withdrawal, error)
	ListByPayee(ctx context.Context, payeeID int, limit int) ([]domain.Withdrawal, error)
	ListByStatus(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error)
	Transition(ctx context.Context, id uuid.UUID, from, to domain.WithdrawalStatus, change domain.WithdrawalChange) (*domain.Withdrawal, error)
	SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error
}

type Balances interface {
	Post(ctx context.Context, p domain.Posting, hooks ...domain.PostHook) (*domain.Transaction, error)
	WithPayeeLock(ctx context.Context, payeeID int, fn pg.TransactionalFn) error
	GetBalance(ctx context.Context, payeeID int) (*domain.Balance, error)
}

type Gateway interface {
	InitiatePayout(ctx context.Context, req domain.PayoutRequest) (*domain.Payout, error)
	PollStatus(ctx context.Context, externalRef string) (*domain.Payout, error)
	LookupPayout(ctx context.Context, idempotencyRef string) (*domain.Payout, error)
}

type CommissionSettler interface {
	MarkPaidUpTo(ctx context.Context, managerID int, totalWithdrawn decimal.Decimal) (int, error)
}

type Service struct {
	repo        Repo
	balances    Balances
	gateway     Gateway
	commissions CommissionSettler
	staleAfter  time.Duration
	now         func() time.Time
}

func New(repo Repo, balances Balances, gateway Gateway, commissions CommissionSettler, staleAfter time.Duration) *Service {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{
		repo:        repo,
		balances:    balances,
		gateway:     gateway,
		commissions: commissions,
		staleAfter:  staleAfter,
		now:         time.Now,
	}
}

type RequestInput struct {
	PayeeID            int
	Amount             decimal.Decimal
	DestinationAccount string
	// ID is optional; a client retry with the same ID returns the original withdrawal.
	ID uuid.UUID
}

// Request reserves the amount and creates the REQUESTED withdrawal in one
// transaction. Nothing is created when the balance does not cover it.
func (s *Service) Request(ctx context.Context, in RequestInput) (*domain.Withdrawal, error) {
	if in.PayeeID <= 0 {
		return nil, domain.NewValidationError("invalid payee id %d", in.PayeeID)
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if !validate.IsPayoutAccount(in.DestinationAccount) {
		return nil, domain.NewValidationError("invalid destination account")
	}

	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	w := &domain.Withdrawal{
		ID:                 id,
		PayeeID:            in.PayeeID,
		Amount:             in.Amount,
		DestinationAccount: validate.NormalizeAccount(in.DestinationAccount),
		Status:             domain.WithdrawalRequested,
		RequestedAt:        s.now(),
	}

	_, err := s.balances.Post(ctx, domain.Posting{
		PayeeID:        w.PayeeID,
		Kind:           domain.KindWithdrawalReserved,
		Amount:         w.Amount,
		IdempotencyKey: domain.WithdrawalReserveKey(w.ID),
		Description:    "withdrawal " + w.ID.String() + " reserved",
	}, func(ctx context.Context, _ *domain.Transaction) error {
		return s.repo.Create(ctx, w)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			zap.L().Info("withdrawal rejected", zap.Int("payee_id", in.PayeeID), zap.String("amount", in.Amount.String()), zap.Error(err))
		}
		return nil, err
	}

	stored, err := s.repo.FindByID(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	if stored.PayeeID != in.PayeeID {
		return nil, fmt.Errorf("%w: withdrawal %s belongs to another payee", domain.ErrLedgerConflict, w.ID)
	}

	metrics.WithdrawalTransitions.WithLabelValues(string(domain.WithdrawalRequested)).Inc()
	zap.L().Info("withdrawal requested", zap.String("withdrawal_id", w.ID.String()), zap.Int("payee_id", w.PayeeID), zap.String("amount", w.Amount.String()))
	return stored, nil
}

// Cancel releases the reservation of a withdrawal that was not dispatched yet.
func (s *Service) Cancel(ctx context.Context, payeeID int, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.Get(ctx, payeeID, id)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, w, domain.WithdrawalCancelled, "")
}

// Dispatch moves a REQUESTED withdrawal to PENDING under the payee lock and
// calls the gateway after the lock is released. An unknown gateway outcome
// leaves the withdrawal PENDING for Resolve.
func (s *Service) Dispatch(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WithdrawalRequested {
		return w, nil
	}

	err = s.balances.WithPayeeLock(ctx, w.PayeeID, func(ctx context.Context) error {
		w, err = s.repo.Transition(ctx, id, domain.WithdrawalRequested, domain.WithdrawalPending, domain.WithdrawalChange{At: s.now()})
		return err
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		return s.repo.FindByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	metrics.WithdrawalTransitions.WithLabelValues(string(domain.WithdrawalPending)).Inc()

	payout, err := s.gateway.InitiatePayout(ctx, domain.PayoutRequest{
		Amount:             w.Amount,
		DestinationAccount: w.DestinationAccount,
		IdempotencyRef:     w.ID.String(),
	})
	switch {
	case errors.Is(err, domain.ErrPayoutRejected):
		return s.finish(ctx, w, domain.WithdrawalFailed, err.Error())
	case err != nil:
		zap.L().Warn("payout outcome unknown, left pending", zap.String("withdrawal_id", id.String()), zap.Error(err))
		return w, nil
	}

	return s.apply(ctx, w, payout)
}

// Resolve asks the gateway about a PENDING withdrawal. A payout the gateway has
// never heard of is failed once the withdrawal is older than the stale window.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WithdrawalPending {
		return w, nil
	}

	var payout *domain.Payout
	if w.ExternalRef != "" {
		payout, err = s.gateway.PollStatus(ctx, w.ExternalRef)
	} else {
		payout, err = s.gateway.LookupPayout(ctx, w.ID.String())
	}
	if errors.Is(err, domain.ErrPayoutNotFound) {
		since := w.RequestedAt
		if w.DispatchedAt != nil {
			since = *w.DispatchedAt
		}
		if s.now().Sub(since) < s.staleAfter {
			return w, nil
		}
		zap.L().Warn("payout unknown to gateway, failing stale withdrawal", zap.String("withdrawal_id", id.String()))
		return s.finish(ctx, w, domain.WithdrawalFailed, "payout not found at gateway")
	}
	if err != nil {
		return w, err
	}
	return s.apply(ctx, w, payout)
}

// HandleCallback applies a gateway notification. The withdrawal is found by
// idempotency ref when present, else by external ref. Replays are no-ops.
func (s *Service) HandleCallback(ctx context.Context, idempotencyRef, externalRef string, payout *domain.Payout) (*domain.Withdrawal, error) {
	var (
		w   *domain.Withdrawal
		err error
	)
	if idempotencyRef != "" {
		id, perr := uuid.Parse(idempotencyRef)
		if perr != nil {
			return nil, domain.NewValidationError("invalid idempotency ref %q", idempotencyRef)
		}
		w, err = s.repo.FindByID(ctx, id)
	} else if externalRef != "" {
		w, err = s.repo.FindByExternalRef(ctx, externalRef)
	} else {
		return nil, domain.NewValidationError("callback carries no reference")
	}
	if err != nil {
		return nil, err
	}

	payout.ExternalRef = externalRef
	return s.apply(ctx, w, payout)
}

func (s *Service) Get(ctx context.Context, payeeID int, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payeeID != 0 && w.PayeeID != payeeID {
		return nil, fmt.Errorf("withdrawal %s: %w", id, domain.ErrNotFound)
	}
	return w, nil
}

func (s *Service) List(ctx context.Context, payeeID int, limit int) ([]domain.Withdrawal, error) {
	return s.repo.ListByPayee(ctx, payeeID, clampLimit(limit))
}

func (s *Service) ListByStatus(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error) {
	return s.repo.ListByStatus(ctx, status, clampLimit(limit))
}

func (s *Service) apply(ctx context.Context, w *domain.Withdrawal, payout *domain.Payout) (*domain.Withdrawal, error) {
	if payout.ExternalRef != "" && payout.ExternalRef != w.ExternalRef {
		if err := s.repo.SetExternalRef(ctx, w.ID, payout.ExternalRef); err != nil {
			return nil, err
		}
		w.ExternalRef = payout.ExternalRef
	}

	switch payout.Status {
	case domain.PayoutCompleted:
		return s.finish(ctx, w, domain.WithdrawalCompleted, "")
	case domain.PayoutFailed:
		reason := payout.Reason
		if reason == "" {
			reason = "payout failed at gateway"
		}
		return s.finish(ctx, w, domain.WithdrawalFailed, reason)
	}
	return w, nil
}

// finish applies a terminal transition together with its ledger entry under
// the payee lock. Reaching a status the withdrawal is already in is a no-op.
func (s *Service) finish(ctx context.Context, w *domain.Withdrawal, to domain.WithdrawalStatus, reason string) (*domain.Withdrawal, error) {
	posting := domain.Posting{
		PayeeID:     w.PayeeID,
		Amount:      w.Amount,
		ExternalRef: w.ExternalRef,
	}
	switch to {
	case domain.WithdrawalCompleted:
		posting.Kind = domain.KindWithdrawalSettled
		posting.IdempotencyKey = domain.WithdrawalSettleKey(w.ID)
		posting.Description = "withdrawal " + w.ID.String() + " settled"
	default:
		posting.Kind = domain.KindWithdrawalFailed
		posting.IdempotencyKey = domain.WithdrawalReleaseKey(w.ID)
		posting.Description = "withdrawal " + w.ID.String() + " " + string(to)
	}

	var (
		result  *domain.Withdrawal
		changed bool
	)
	err := s.balances.WithPayeeLock(ctx, w.PayeeID, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, w.ID)
		if err != nil {
			return err
		}
		if current.Status == to {
			result = current
			return nil
		}
		if !current.Status.CanTransition(to) {
			return fmt.Errorf("%w: withdrawal %s is %s, cannot become %s", domain.ErrInvalidTransition, w.ID, current.Status, to)
		}
		if _, err := s.balances.Post(ctx, posting); err != nil {
			return err
		}
		result, err = s.repo.Transition(ctx, w.ID, current.Status, to, domain.WithdrawalChange{At: s.now(), FailureReason: reason})
		changed = err == nil
		return err
	})
	if err != nil {
		zap.L().Error("failed to finish withdrawal",
			zap.String("withdrawal_id", w.ID.String()),
			zap.String("status", string(to)),
			zap.Error(err),
		)
		return nil, err
	}
	if !changed {
		return result, nil
	}

	metrics.WithdrawalTransitions.WithLabelValues(string(to)).Inc()
	zap.L().Info("withdrawal finished",
		zap.String("withdrawal_id", w.ID.String()),
		zap.Int("payee_id", w.PayeeID),
		zap.String("status", string(to)),
		zap.String("reason", reason),
	)
	if to == domain.WithdrawalCompleted {
		s.settleCommissions(ctx, w.PayeeID)
	}
	return result, nil
}

func (s *Service) settleCommissions(ctx context.Context, payeeID int) {
	if s.commissions == nil {
		return
	}
	balance, err := s.balances.GetBalance(ctx, payeeID)
	if err != nil {
		return
	}
	if _, err := s.commissions.MarkPaidUpTo(ctx, payeeID, balance.TotalWithdrawn); err != nil {
		zap.L().Warn("failed to mark commissions paid", zap.Int("payee_id", payeeID), zap.Error(err))
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}
