package balanceservice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayeeLocksSerialize(t *testing.T) {
	locks := newPayeeLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unlock, err := locks.Lock(context.Background(), 1)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locks.locks)
}

func TestPayeeLocksReentrant(t *testing.T) {
	locks := newPayeeLocks()

	ctx, unlock, err := locks.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	_, inner, err := locks.Lock(ctx, 1)
	require.NoError(t, err)
	inner()

	// other payees are independent
	_, other, err := locks.Lock(context.Background(), 2)
	require.NoError(t, err)
	other()
}

func TestPayeeLocksContextCancelled(t *testing.T) {
	locks := newPayeeLocks()
	_, unlock, err := locks.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err = locks.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
