package gateway

import (
	"sync"
	"time"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

const recentTTL = 10 * time.Minute

// recentPayouts remembers successful submissions for a while. Past the ttl a
// repeated ref goes back to the gateway, which answers it by Idempotency-Key.
type recentPayouts struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]recentPayout
	lastSweep time.Time
}

type recentPayout struct {
	payout domain.Payout
	stored time.Time
}

func newRecentPayouts(ttl time.Duration) *recentPayouts {
	return &recentPayouts{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]recentPayout),
	}
}

func (r *recentPayouts) Load(ref string) (*domain.Payout, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[ref]
	if !ok {
		return nil, false
	}
	if r.now().Sub(e.stored) >= r.ttl {
		delete(r.entries, ref)
		return nil, false
	}
	payout := e.payout
	return &payout, true
}

func (r *recentPayouts) Store(ref string, payout domain.Payout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if now.Sub(r.lastSweep) >= r.ttl {
		for k, e := range r.entries {
			if now.Sub(e.stored) >= r.ttl {
				delete(r.entries, k)
			}
		}
		r.lastSweep = now
	}
	r.entries[ref] = recentPayout{payout: payout, stored: now}
}

func (r *recentPayouts) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
