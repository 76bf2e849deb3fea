package memrepo

import (
	"context"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type LedgerRepo struct {
	store *Store
}

func (r *LedgerRepo) FindByKey(ctx context.Context, payeeID int, key string) (*domain.Transaction, error) {
	var found *domain.Transaction
	err := r.store.view(ctx, func(st *state) error {
		if i, ok := st.transactionKeys[ledgerKey{payeeID, key}]; ok {
			tx := st.transactions[i]
			found = &tx
		}
		return nil
	})
	return found, err
}

func (r *LedgerRepo) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, bool, error) {
	var (
		result  domain.Transaction
		created bool
	)
	err := r.store.view(ctx, func(st *state) error {
		k := ledgerKey{tx.PayeeID, tx.IdempotencyKey}
		if i, ok := st.transactionKeys[k]; ok {
			result = st.transactions[i]
			return nil
		}
		st.nextTransactionID++
		result = *tx
		result.ID = st.nextTransactionID
		st.transactionKeys[k] = len(st.transactions)
		st.transactions = append(st.transactions, result)
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

func (r *LedgerRepo) ListByPayee(ctx context.Context, payeeID int, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var kinds map[domain.TransactionKind]bool
	if len(filter.Kinds) > 0 {
		kinds = make(map[domain.TransactionKind]bool, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds[k] = true
		}
	}
	limit := limitOr(filter.Limit, 100)

	var out []domain.Transaction
	err := r.store.view(ctx, func(st *state) error {
		for _, tx := range st.transactions {
			if len(out) == limit {
				break
			}
			if tx.PayeeID != payeeID || tx.ID <= filter.AfterID {
				continue
			}
			if kinds != nil && !kinds[tx.Kind] {
				continue
			}
			out = append(out, tx)
		}
		return nil
	})
	return out, err
}

func (r *LedgerRepo) FindCorruptEarnings(ctx context.Context, limit int) ([]domain.Transaction, error) {
	limit = limitOr(limit, 100)
	var out []domain.Transaction
	err := r.store.view(ctx, func(st *state) error {
		for _, tx := range st.transactions {
			if len(out) == limit {
				break
			}
			if tx.Kind == domain.KindEarning && !tx.Amount.IsPositive() {
				out = append(out, tx)
			}
		}
		return nil
	})
	return out, err
}

func (r *LedgerRepo) ListPayeeIDs(ctx context.Context) ([]int, error) {
	set := make(map[int]struct{})
	err := r.store.view(ctx, func(st *state) error {
		for _, tx := range st.transactions {
			set[tx.PayeeID] = struct{}{}
		}
		return nil
	})
	return sortedInts(set), err
}

// InsertRaw appends a row without any validation. It exists to seed legacy
// data in tests.
func (r *LedgerRepo) InsertRaw(tx domain.Transaction) domain.Transaction {
	_ = r.store.view(context.Background(), func(st *state) error {
		st.nextTransactionID++
		tx.ID = st.nextTransactionID
		st.transactionKeys[ledgerKey{tx.PayeeID, tx.IdempotencyKey}] = len(st.transactions)
		st.transactions = append(st.transactions, tx)
		return nil
	})
	return tx
}

type ConflictRepo struct {
	store *Store
}

func (r *ConflictRepo) SaveConflict(_ context.Context, conflict *domain.LedgerConflict) error {
	r.store.conflictMu.Lock()
	defer r.store.conflictMu.Unlock()
	r.store.nextConflictID++
	conflict.ID = r.store.nextConflictID
	r.store.conflicts = append(r.store.conflicts, *conflict)
	return nil
}

func (r *ConflictRepo) ListConflicts(_ context.Context, limit int) ([]domain.LedgerConflict, error) {
	limit = limitOr(limit, 100)
	r.store.conflictMu.Lock()
	defer r.store.conflictMu.Unlock()
	var out []domain.LedgerConflict
	for i := len(r.store.conflicts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.store.conflicts[i])
	}
	return out, nil
}
