package memrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type CommissionRepo struct {
	store *Store
}

func (r *CommissionRepo) Create(ctx context.Context, c *domain.Commission) (*domain.Commission, bool, error) {
	var (
		result  domain.Commission
		created bool
	)
	err := r.store.view(ctx, func(st *state) error {
		if id, ok := st.commissionByOrder[c.OrderID]; ok {
			result = st.commissions[id]
			return nil
		}
		st.nextCommissionID++
		result = *c
		result.ID = st.nextCommissionID
		st.commissions[result.ID] = result
		st.commissionByOrder[result.OrderID] = result.ID
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

func (r *CommissionRepo) FindByID(ctx context.Context, id int) (*domain.Commission, error) {
	var found *domain.Commission
	err := r.store.view(ctx, func(st *state) error {
		c, ok := st.commissions[id]
		if !ok {
			return fmt.Errorf("commission %d: %w", id, domain.ErrNotFound)
		}
		found = &c
		return nil
	})
	return found, err
}

func (r *CommissionRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Commission, error) {
	var found *domain.Commission
	err := r.store.view(ctx, func(st *state) error {
		if id, ok := st.commissionByOrder[orderID]; ok {
			c := st.commissions[id]
			found = &c
		}
		return nil
	})
	return found, err
}

func (r *CommissionRepo) UpdateStatus(ctx context.Context, id int, from, to domain.CommissionStatus, at time.Time) (*domain.Commission, error) {
	var updated domain.Commission
	err := r.store.view(ctx, func(st *state) error {
		c, ok := st.commissions[id]
		if !ok {
			return fmt.Errorf("commission %d: %w", id, domain.ErrNotFound)
		}
		if c.Status != from {
			return fmt.Errorf("%w: commission %d is %s", domain.ErrInvalidTransition, id, c.Status)
		}
		c.Status = to
		stamp := at
		switch to {
		case domain.CommissionApproved:
			c.ApprovedAt = &stamp
		case domain.CommissionPaid:
			c.PaidAt = &stamp
		case domain.CommissionCancelled:
			c.CancelledAt = &stamp
		}
		st.commissions[id] = c
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *CommissionRepo) List(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error) {
	statuses := make(map[domain.CommissionStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = true
	}
	limit := limitOr(filter.Limit, 100)

	var out []domain.Commission
	err := r.store.view(ctx, func(st *state) error {
		for id := filter.AfterID + 1; id <= st.nextCommissionID && len(out) < limit; id++ {
			c, ok := st.commissions[id]
			if !ok {
				continue
			}
			if filter.SalesManagerID != 0 && c.SalesManagerID != filter.SalesManagerID {
				continue
			}
			if len(statuses) > 0 && !statuses[c.Status] {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	return out, err
}

type ManagerRepo struct {
	store *Store
}

func (r *ManagerRepo) FindByRefCode(ctx context.Context, refCode string) (*domain.SalesManager, error) {
	var found *domain.SalesManager
	err := r.store.view(ctx, func(st *state) error {
		m, ok := st.managers[refCode]
		if !ok {
			return fmt.Errorf("ref code %q: %w", refCode, domain.ErrSalesManagerNotFound)
		}
		found = &m
		return nil
	})
	return found, err
}
