package orderservice

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
)

//go:generate mockgen -source=orderservice.go -destination=mock_orderservice.go -package=orderservice

// Upsert keeps the stored order when it is newer than the given one and
// reports applied=false.
type Repo interface {
	Upsert(ctx context.Context, order *domain.Order) (*domain.Order, bool, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	FindMissingCommissions(ctx context.Context, afterOrderID string, limit int) ([]domain.Order, error)
}

type Poster interface {
	Post(ctx context.Context, p domain.Posting, hooks ...domain.PostHook) (*domain.Transaction, error)
}

type Ledger interface {
	Find(ctx context.Context, payeeID int, key string) (*domain.Transaction, error)
}

type Commissions interface {
	OnOrderCompleted(ctx context.Context, order *domain.Order) (*domain.Commission, error)
	CancelForOrder(ctx context.Context, orderID string) (*domain.Commission, error)
}

type Service struct {
	repo        Repo
	poster      Poster
	ledger      Ledger
	commissions Commissions
	locks       *orderLocks
}

func New(repo Repo, poster Poster, ledger Ledger, commissions Commissions) *Service {
	return &Service{
		repo:        repo,
		poster:      poster,
		ledger:      ledger,
		commissions: commissions,
		locks:       newOrderLocks(),
	}
}

func Validate(order *domain.Order) error {
	switch {
	case order.OrderID == "":
		return domain.NewValidationError("order id is required")
	case order.PayeeID <= 0:
		return domain.NewValidationError("invalid payee id %d", order.PayeeID)
	case order.TotalPrice.IsNegative():
		return domain.NewValidationError("negative order total %s", order.TotalPrice.String())
	case !order.TotalPrice.Equal(order.TotalPrice.Round(2)):
		return domain.NewValidationError("order total %s has more than two decimal places", order.TotalPrice.String())
	}
	switch order.Status {
	case domain.OrderPending, domain.OrderPaid, domain.OrderShipped, domain.OrderDelivered,
		domain.OrderCompleted, domain.OrderCancelled, domain.OrderRefunded:
		return nil
	}
	return domain.NewValidationError("unknown order status %q", order.Status)
}

// HandleOrderEvent applies one at-least-once order update: the seller is
// credited when the order settles and debited back when a settled order is
// reversed, and the sales commission follows the order. Every step is
// idempotent, so redelivery is safe.
func (s *Service) HandleOrderEvent(ctx context.Context, order *domain.Order) error {
	if err := Validate(order); err != nil {
		metrics.OrderEvents.WithLabelValues("order", "rejected").Inc()
		return err
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now()
	}

	unlock := s.locks.Lock(order.OrderID)
	defer unlock()

	_, applied, err := s.repo.Upsert(ctx, order)
	if err != nil {
		zap.L().Error("failed to store order", zap.String("order_id", order.OrderID), zap.Error(err))
		return err
	}
	if !applied {
		metrics.OrderEvents.WithLabelValues("order", "stale").Inc()
		zap.L().Debug("stale order event ignored", zap.String("order_id", order.OrderID), zap.String("status", string(order.Status)))
		return nil
	}

	// The commission step runs even when the seller step fails: a reversal
	// the seller can no longer cover must still cancel the commission.
	var sellerErr error
	switch {
	case order.Status.IsSettled():
		sellerErr = s.creditSeller(ctx, order)
	case order.Status.IsReversed():
		sellerErr = s.reverseSeller(ctx, order)
	}
	if sellerErr != nil {
		zap.L().Warn("seller posting failed", zap.String("order_id", order.OrderID),
			zap.String("status", string(order.Status)), zap.Error(sellerErr))
	}

	var commissionErr error
	if order.SalesRefCode != "" {
		switch {
		case order.Status.IsPaid():
			_, commissionErr = s.commissions.OnOrderCompleted(ctx, order)
		case order.Status.IsReversed():
			_, commissionErr = s.commissions.CancelForOrder(ctx, order.OrderID)
		}
	}

	if err := errors.Join(sellerErr, commissionErr); err != nil {
		metrics.OrderEvents.WithLabelValues("order", "failed").Inc()
		return err
	}
	metrics.OrderEvents.WithLabelValues("order", "applied").Inc()
	return nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

// BackfillCommissions creates commissions for paid orders that carry a sales
// ref code and have none. Orders are read in pages of batch by order id, so
// orders that keep failing do not hide the ones after them. It returns how
// many were created and how many failed.
func (s *Service) BackfillCommissions(ctx context.Context, batch int) (int, int, error) {
	created, failed := 0, 0
	after := ""
	for {
		orders, err := s.repo.FindMissingCommissions(ctx, after, batch)
		if err != nil {
			return created, failed, err
		}
		for i := range orders {
			c, err := s.commissions.OnOrderCompleted(ctx, &orders[i])
			if err != nil {
				failed++
				zap.L().Warn("commission backfill failed", zap.String("order_id", orders[i].OrderID), zap.Error(err))
				continue
			}
			if c != nil {
				created++
			}
		}
		if len(orders) == 0 || len(orders) < batch {
			break
		}
		after = orders[len(orders)-1].OrderID
	}
	if created > 0 {
		metrics.ReconciliationAnomalies.WithLabelValues("missing_commission").Add(float64(created))
	}
	return created, failed, nil
}

func (s *Service) creditSeller(ctx context.Context, order *domain.Order) error {
	if !order.TotalPrice.IsPositive() {
		return nil
	}
	_, err := s.poster.Post(ctx, domain.Posting{
		PayeeID:        order.PayeeID,
		Kind:           domain.KindEarning,
		Amount:         order.TotalPrice,
		IdempotencyKey: domain.EarningKey(order.OrderID),
		OrderRef:       order.OrderID,
		Description:    "sale of order " + order.OrderID,
	})
	return err
}

func (s *Service) reverseSeller(ctx context.Context, order *domain.Order) error {
	earning, err := s.ledger.Find(ctx, order.PayeeID, domain.EarningKey(order.OrderID))
	if err != nil || earning == nil {
		return err
	}
	_, err = s.poster.Post(ctx, domain.Posting{
		PayeeID:        order.PayeeID,
		Kind:           domain.KindAdjustment,
		Amount:         earning.Amount,
		IdempotencyKey: domain.EarningReversalKey(order.OrderID),
		OrderRef:       order.OrderID,
		Description:    string(order.Status) + " order " + order.OrderID,
	})
	return err
}
