package memrepo

import (
	"context"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type BalanceRepo struct {
	store *Store
}

func (r *BalanceRepo) GetBalance(ctx context.Context, payeeID int) (*domain.Balance, error) {
	var found *domain.Balance
	err := r.store.view(ctx, func(st *state) error {
		if b, ok := st.balances[payeeID]; ok {
			found = &b
		}
		return nil
	})
	return found, err
}

func (r *BalanceRepo) CreateBalance(ctx context.Context, balance *domain.Balance) error {
	return r.store.view(ctx, func(st *state) error {
		if _, ok := st.balances[balance.PayeeID]; ok {
			return domain.ErrVersionConflict
		}
		st.balances[balance.PayeeID] = *balance
		return nil
	})
}

func (r *BalanceRepo) UpdateBalance(ctx context.Context, balance *domain.Balance, expectedVersion int64) error {
	return r.store.view(ctx, func(st *state) error {
		current, ok := st.balances[balance.PayeeID]
		if !ok || current.Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		st.balances[balance.PayeeID] = *balance
		return nil
	})
}

func (r *BalanceRepo) ListPayeeIDs(ctx context.Context) ([]int, error) {
	set := make(map[int]struct{})
	err := r.store.view(ctx, func(st *state) error {
		for id := range st.balances {
			set[id] = struct{}{}
		}
		return nil
	})
	return sortedInts(set), err
}

// Overwrite replaces a balance without version checks, simulating drift in tests.
func (r *BalanceRepo) Overwrite(balance domain.Balance) {
	_ = r.store.view(context.Background(), func(st *state) error {
		st.balances[balance.PayeeID] = balance
		return nil
	})
}
