package commissionservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

//go:generate mockgen -source=commissionservice.go -destination=mock_commissionservice.go -package=commissionservice

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var hundred = decimal.NewFromInt(100)

// Create returns the stored commission with created=false when the order
// already has one.
type Repo interface {
	Create(ctx context.Context, c *domain.Commission) (*domain.Commission, bool, error)
	FindByID(ctx context.Context, id int) (*domain.Commission, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Commission, error)
	UpdateStatus(ctx context.Context, id int, from, to domain.CommissionStatus, at time.Time) (*domain.Commission, error)
	List(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error)
}

type ManagerRepo interface {
	FindByRefCode(ctx context.Context, refCode string) (*domain.SalesManager, error)
}

type Poster interface {
	Post(ctx context.Context, p domain.Posting, hooks ...domain.PostHook) (*domain.Transaction, error)
	WithPayeeLock(ctx context.Context, payeeID int, fn pg.TransactionalFn) error
}

type Service struct {
	repo           Repo
	managers       ManagerRepo
	poster         Poster
	defaultPercent decimal.Decimal
}

func New(repo Repo, managers ManagerRepo, poster Poster, defaultPercent decimal.Decimal) *Service {
	return &Service{
		repo:           repo,
		managers:       managers,
		poster:         poster,
		defaultPercent: defaultPercent,
	}
}

// Amount is orderTotal * percent / 100, rounded half-up to cents.
func Amount(orderTotal, percent decimal.Decimal) decimal.Decimal {
	return orderTotal.Mul(percent).Div(hundred).Round(2)
}

// OnOrderCompleted creates the order's commission once. Orders without a
// sales ref code or not yet paid are ignored. A settled order gets an APPROVED
// commission and the manager is credited in the same transaction; an existing
// PENDING commission is approved.
func (s *Service) OnOrderCompleted(ctx context.Context, order *domain.Order) (*domain.Commission, error) {
	if order.SalesRefCode == "" || !order.Status.IsPaid() {
		return nil, nil
	}

	existing, err := s.repo.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == domain.CommissionPending && order.Status.IsSettled() {
			return s.Approve(ctx, existing.ID)
		}
		return existing, nil
	}

	manager, err := s.managers.FindByRefCode(ctx, order.SalesRefCode)
	if err != nil {
		zap.L().Warn("commission skipped", zap.String("order_id", order.OrderID), zap.String("ref_code", order.SalesRefCode), zap.Error(err))
		return nil, err
	}

	percent := s.defaultPercent
	if manager.CommissionPercent.IsPositive() {
		percent = manager.CommissionPercent
	}

	now := time.Now()
	commission := &domain.Commission{
		SalesManagerID:    manager.ID,
		OrderID:           order.OrderID,
		OrderTotal:        order.TotalPrice,
		CommissionPercent: percent,
		CommissionAmount:  Amount(order.TotalPrice, percent),
		Status:            domain.CommissionPending,
		CreatedAt:         now,
	}
	if order.Status.IsSettled() {
		commission.Status = domain.CommissionApproved
		commission.ApprovedAt = &now
	}

	var stored *domain.Commission
	err = s.poster.WithPayeeLock(ctx, manager.ID, func(ctx context.Context) error {
		c, created, err := s.repo.Create(ctx, commission)
		if err != nil {
			return err
		}
		stored = c
		if !created || !c.Status.EarningPosted() {
			return nil
		}
		return s.credit(ctx, c)
	})
	if err != nil {
		zap.L().Error("failed to create commission", zap.String("order_id", order.OrderID), zap.Error(err))
		return nil, err
	}

	metrics.CommissionTransitions.WithLabelValues(string(stored.Status)).Inc()
	zap.L().Info("commission created",
		zap.String("order_id", stored.OrderID),
		zap.Int("sales_manager_id", stored.SalesManagerID),
		zap.String("amount", stored.CommissionAmount.String()),
		zap.String("status", string(stored.Status)),
	)
	return stored, nil
}

// Approve credits the sales manager and moves PENDING to APPROVED.
func (s *Service) Approve(ctx context.Context, id int) (*domain.Commission, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case domain.CommissionApproved, domain.CommissionPaid:
		return c, nil
	case domain.CommissionCancelled:
		return nil, fmt.Errorf("%w: commission %d is cancelled", domain.ErrInvalidTransition, id)
	}

	var updated *domain.Commission
	err = s.poster.WithPayeeLock(ctx, c.SalesManagerID, func(ctx context.Context) error {
		if err := s.credit(ctx, c); err != nil {
			return err
		}
		updated, err = s.repo.UpdateStatus(ctx, c.ID, domain.CommissionPending, domain.CommissionApproved, time.Now())
		return err
	})
	if err != nil {
		zap.L().Error("failed to approve commission", zap.Int("commission_id", id), zap.Error(err))
		return nil, err
	}

	metrics.CommissionTransitions.WithLabelValues(string(domain.CommissionApproved)).Inc()
	return updated, nil
}

// Cancel moves PENDING or APPROVED to CANCELLED. An approved commission is
// reversed by an adjustment entry, so cancelling fails with
// ErrInsufficientBalance when the manager already withdrew the money.
func (s *Service) Cancel(ctx context.Context, id int) (*domain.Commission, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case domain.CommissionCancelled:
		return c, nil
	case domain.CommissionPaid:
		return nil, fmt.Errorf("%w: commission %d is already paid out", domain.ErrInvalidTransition, id)
	}

	var updated *domain.Commission
	err = s.poster.WithPayeeLock(ctx, c.SalesManagerID, func(ctx context.Context) error {
		if c.Status == domain.CommissionApproved && c.CommissionAmount.IsPositive() {
			_, err := s.poster.Post(ctx, domain.Posting{
				PayeeID:        c.SalesManagerID,
				Kind:           domain.KindAdjustment,
				Amount:         c.CommissionAmount,
				IdempotencyKey: domain.CommissionReversalKey(c.OrderID),
				OrderRef:       c.OrderID,
				Description:    "commission cancelled for order " + c.OrderID,
			})
			if err != nil {
				return err
			}
		}
		updated, err = s.repo.UpdateStatus(ctx, c.ID, c.Status, domain.CommissionCancelled, time.Now())
		return err
	})
	if err != nil {
		zap.L().Error("failed to cancel commission", zap.Int("commission_id", id), zap.Error(err))
		return nil, err
	}

	metrics.CommissionTransitions.WithLabelValues(string(domain.CommissionCancelled)).Inc()
	zap.L().Info("commission cancelled", zap.Int("commission_id", id), zap.String("order_id", c.OrderID))
	return updated, nil
}

// CancelForOrder is Cancel keyed by order. Orders without a commission are ignored.
func (s *Service) CancelForOrder(ctx context.Context, orderID string) (*domain.Commission, error) {
	c, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil || c == nil {
		return nil, err
	}
	return s.Cancel(ctx, c.ID)
}

func (s *Service) Get(ctx context.Context, id int) (*domain.Commission, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, domain.NewValidationError("unknown commission status %q", status)
		}
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultLimit
	case filter.Limit > maxLimit:
		filter.Limit = maxLimit
	}
	return s.repo.List(ctx, filter)
}

// MarkPaidUpTo marks approved commissions PAID, oldest first, while the total
// marked paid stays within the manager's withdrawn amount.
func (s *Service) MarkPaidUpTo(ctx context.Context, managerID int, totalWithdrawn decimal.Decimal) (int, error) {
	paid := decimal.Zero
	err := s.each(ctx, domain.CommissionFilter{SalesManagerID: managerID, Statuses: []domain.CommissionStatus{domain.CommissionPaid}}, func(c domain.Commission) error {
		paid = paid.Add(c.CommissionAmount)
		return nil
	})
	if err != nil {
		return 0, err
	}

	marked := 0
	now := time.Now()
	err = s.each(ctx, domain.CommissionFilter{SalesManagerID: managerID, Statuses: []domain.CommissionStatus{domain.CommissionApproved}}, func(c domain.Commission) error {
		next := paid.Add(c.CommissionAmount)
		if next.GreaterThan(totalWithdrawn) {
			return errStop
		}
		if _, err := s.repo.UpdateStatus(ctx, c.ID, domain.CommissionApproved, domain.CommissionPaid, now); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return nil
			}
			return err
		}
		paid = next
		marked++
		metrics.CommissionTransitions.WithLabelValues(string(domain.CommissionPaid)).Inc()
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		zap.L().Error("failed to mark commissions paid", zap.Int("sales_manager_id", managerID), zap.Error(err))
		return marked, err
	}
	return marked, nil
}

var errStop = errors.New("stop")

func (s *Service) each(ctx context.Context, filter domain.CommissionFilter, fn func(domain.Commission) error) error {
	filter.Limit = maxLimit
	for {
		page, err := s.repo.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, c := range page {
			if err := fn(c); err != nil {
				return err
			}
			filter.AfterID = c.ID
		}
		if len(page) < filter.Limit {
			return nil
		}
	}
}

func (s *Service) credit(ctx context.Context, c *domain.Commission) error {
	if !c.CommissionAmount.IsPositive() {
		return nil
	}
	_, err := s.poster.Post(ctx, domain.Posting{
		PayeeID:        c.SalesManagerID,
		Kind:           domain.KindEarning,
		Amount:         c.CommissionAmount,
		IdempotencyKey: domain.CommissionKey(c.OrderID),
		OrderRef:       c.OrderID,
		Description:    "sales commission for order " + c.OrderID,
	})
	return err
}
