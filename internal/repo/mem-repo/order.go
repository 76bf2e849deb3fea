package memrepo

import (
	"context"
	"fmt"
	"sort"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type OrderRepo struct {
	store *Store
}

// Upsert keeps the stored order when it is newer than o.
func (r *OrderRepo) Upsert(ctx context.Context, o *domain.Order) (*domain.Order, bool, error) {
	var (
		result  domain.Order
		applied bool
	)
	err := r.store.view(ctx, func(st *state) error {
		if current, ok := st.orders[o.OrderID]; ok && current.UpdatedAt.After(o.UpdatedAt) {
			result = current
			return nil
		}
		st.orders[o.OrderID] = *o
		result = *o
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, applied, nil
}

func (r *OrderRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	var found *domain.Order
	err := r.store.view(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
		}
		found = &o
		return nil
	})
	return found, err
}

func (r *OrderRepo) FindMissingCommissions(ctx context.Context, afterOrderID string, limit int) ([]domain.Order, error) {
	limit = limitOr(limit, 100)
	var out []domain.Order
	err := r.store.view(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.OrderID <= afterOrderID || o.SalesRefCode == "" || !o.Status.IsPaid() {
				continue
			}
			if _, ok := st.commissionByOrder[o.OrderID]; ok {
				continue
			}
			out = append(out, o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
