package orderservice

import "sync"

// orderLocks serializes the handling of one order's events within the
// process. Entries are dropped once nobody holds or waits for them.
type orderLocks struct {
	mu    sync.Mutex
	locks map[string]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: make(map[string]*orderLock)}
}

func (l *orderLocks) Lock(orderID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[orderID]
	if !ok {
		lock = &orderLock{}
		l.locks[orderID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, orderID)
		}
		l.mu.Unlock()
	}
}
