package balanceservice

import (
	"context"
	"sync"
)

type heldKey struct{ payeeID int }

// payeeLocks hands out one mutex per payee. Entries are dropped once nobody
// holds or waits for them.
type payeeLocks struct {
	mu    sync.Mutex
	locks map[int]*payeeLock
}

type payeeLock struct {
	ch   chan struct{}
	refs int
}

func newPayeeLocks() *payeeLocks {
	return &payeeLocks{locks: make(map[int]*payeeLock)}
}

// Lock blocks until the payee is free or ctx is done. A context that already
// holds the payee passes through, so serialized sections can nest.
func (l *payeeLocks) Lock(ctx context.Context, payeeID int) (context.Context, func(), error) {
	if ctx.Value(heldKey{payeeID}) != nil {
		return ctx, func() {}, nil
	}

	l.mu.Lock()
	lock, ok := l.locks[payeeID]
	if !ok {
		lock = &payeeLock{ch: make(chan struct{}, 1)}
		l.locks[payeeID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(payeeID, lock)
		return ctx, nil, ctx.Err()
	}

	unlock := func() {
		<-lock.ch
		l.release(payeeID, lock)
	}
	return context.WithValue(ctx, heldKey{payeeID}, true), unlock, nil
}

func (l *payeeLocks) release(payeeID int, lock *payeeLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, payeeID)
	}
}
