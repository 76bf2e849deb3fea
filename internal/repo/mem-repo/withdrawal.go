package memrepo

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type WithdrawalRepo struct {
	store *Store
}

func (r *WithdrawalRepo) Create(ctx context.Context, w *domain.Withdrawal) error {
	return r.store.view(ctx, func(st *state) error {
		if _, ok := st.withdrawals[w.ID]; ok {
			return fmt.Errorf("withdrawal %s already exists", w.ID)
		}
		st.withdrawals[w.ID] = *w
		return nil
	})
}

func (r *WithdrawalRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	var found *domain.Withdrawal
	err := r.store.view(ctx, func(st *state) error {
		w, ok := st.withdrawals[id]
		if !ok {
			return fmt.Errorf("withdrawal %s: %w", id, domain.ErrNotFound)
		}
		found = &w
		return nil
	})
	return found, err
}

func (r *WithdrawalRepo) FindByExternalRef(ctx context.Context, externalRef string) (*domain.Withdrawal, error) {
	var found *domain.Withdrawal
	err := r.store.view(ctx, func(st *state) error {
		for _, w := range st.withdrawals {
			if externalRef != "" && w.ExternalRef == externalRef {
				found = &w
				return nil
			}
		}
		return fmt.Errorf("withdrawal with external ref %q: %w", externalRef, domain.ErrNotFound)
	})
	return found, err
}

func (r *WithdrawalRepo) ListByPayee(ctx context.Context, payeeID int, limit int) ([]domain.Withdrawal, error) {
	out, err := r.filter(ctx, func(w domain.Withdrawal) bool { return w.PayeeID == payeeID })
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return truncate(out, limitOr(limit, 100)), err
}

func (r *WithdrawalRepo) ListByStatus(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error) {
	out, err := r.filter(ctx, func(w domain.Withdrawal) bool { return w.Status == status })
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return truncate(out, limitOr(limit, 100)), err
}

func (r *WithdrawalRepo) Transition(ctx context.Context, id uuid.UUID, from, to domain.WithdrawalStatus, change domain.WithdrawalChange) (*domain.Withdrawal, error) {
	var updated domain.Withdrawal
	err := r.store.view(ctx, func(st *state) error {
		w, ok := st.withdrawals[id]
		if !ok {
			return fmt.Errorf("withdrawal %s: %w", id, domain.ErrNotFound)
		}
		if w.Status != from {
			return fmt.Errorf("%w: withdrawal %s is %s", domain.ErrInvalidTransition, id, w.Status)
		}
		w.Status = to
		at := change.At
		if to == domain.WithdrawalPending {
			w.DispatchedAt = &at
		} else {
			w.SettledAt = &at
		}
		if change.FailureReason != "" {
			w.FailureReason = change.FailureReason
		}
		st.withdrawals[id] = w
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *WithdrawalRepo) SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error {
	return r.store.view(ctx, func(st *state) error {
		w, ok := st.withdrawals[id]
		if !ok {
			return fmt.Errorf("withdrawal %s: %w", id, domain.ErrNotFound)
		}
		if w.ExternalRef != "" && w.ExternalRef != externalRef {
			return fmt.Errorf("%w: withdrawal %s already has external ref %q", domain.ErrInvalidTransition, id, w.ExternalRef)
		}
		w.ExternalRef = externalRef
		st.withdrawals[id] = w
		return nil
	})
}

func (r *WithdrawalRepo) filter(ctx context.Context, keep func(domain.Withdrawal) bool) ([]domain.Withdrawal, error) {
	var out []domain.Withdrawal
	err := r.store.view(ctx, func(st *state) error {
		for _, w := range st.withdrawals {
			if keep(w) {
				out = append(out, w)
			}
		}
		return nil
	})
	return out, err
}

func truncate(list []domain.Withdrawal, limit int) []domain.Withdrawal {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
