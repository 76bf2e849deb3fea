// Package memrepo keeps every repository in process memory. Transactions are
// serialized by one store-wide lock and rolled back from a snapshot.
package memrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
)

type txMarker struct{}

type ledgerKey struct {
	payeeID int
	key     string
}

type state struct {
	nextTransactionID int64
	transactions      []domain.Transaction
	transactionKeys   map[ledgerKey]int

	balances map[int]domain.Balance

	managers map[string]domain.SalesManager
	orders   map[string]domain.Order

	nextCommissionID  int
	commissions       map[int]domain.Commission
	commissionByOrder map[string]int

	withdrawals map[uuid.UUID]domain.Withdrawal
}

func newState() *state {
	return &state{
		transactionKeys:   make(map[ledgerKey]int),
		balances:          make(map[int]domain.Balance),
		managers:          make(map[string]domain.SalesManager),
		orders:            make(map[string]domain.Order),
		commissions:       make(map[int]domain.Commission),
		commissionByOrder: make(map[string]int),
		withdrawals:       make(map[uuid.UUID]domain.Withdrawal),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextTransactionID: s.nextTransactionID,
		transactions:      append([]domain.Transaction(nil), s.transactions...),
		transactionKeys:   make(map[ledgerKey]int, len(s.transactionKeys)),
		balances:          make(map[int]domain.Balance, len(s.balances)),
		managers:          make(map[string]domain.SalesManager, len(s.managers)),
		orders:            make(map[string]domain.Order, len(s.orders)),
		nextCommissionID:  s.nextCommissionID,
		commissions:       make(map[int]domain.Commission, len(s.commissions)),
		commissionByOrder: make(map[string]int, len(s.commissionByOrder)),
		withdrawals:       make(map[uuid.UUID]domain.Withdrawal, len(s.withdrawals)),
	}
	for k, v := range s.transactionKeys {
		c.transactionKeys[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.managers {
		c.managers[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.commissions {
		c.commissions[k] = v
	}
	for k, v := range s.commissionByOrder {
		c.commissionByOrder[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state

	// Conflicts are kept apart from state so a rollback never discards them.
	conflictMu     sync.Mutex
	nextConflictID int64
	conflicts      []domain.LedgerConflict
}

func New() *Store {
	return &Store{state: newState()}
}

var _ pg.TXManager = (*Store)(nil)

// Begin runs fn with the store locked. On error every change made by fn is
// discarded. Nested calls join the outer transaction.
func (s *Store) Begin(ctx context.Context, fn pg.TransactionalFn) (err error) {
	if ctx.Value(txMarker{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
		if err != nil {
			s.state = snapshot
		}
	}()
	return fn(context.WithValue(ctx, txMarker{}, s))
}

// view runs fn against the current state, joining the caller's transaction if any.
func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if ctx.Value(txMarker{}) == s {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// AddSalesManager seeds the sales manager read-model.
func (s *Store) AddSalesManager(m domain.SalesManager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = len(s.state.managers) + 1
	}
	s.state.managers[m.RefCode] = m
}

// Ledger returns the transaction log repository.
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{store: s} }

func (s *Store) Conflicts() *ConflictRepo { return &ConflictRepo{store: s} }

func (s *Store) Balances() *BalanceRepo { return &BalanceRepo{store: s} }

func (s *Store) Commissions() *CommissionRepo { return &CommissionRepo{store: s} }

func (s *Store) Managers() *ManagerRepo { return &ManagerRepo{store: s} }

func (s *Store) Orders() *OrderRepo { return &OrderRepo{store: s} }

func (s *Store) Withdrawals() *WithdrawalRepo { return &WithdrawalRepo{store: s} }

func sortedInts(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
