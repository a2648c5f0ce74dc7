package runlock

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerSingleFlight(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()
	id := uuid.New()

	ok, err := l.Acquire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire for the same document must be rejected")

	// a different document is unaffected
	ok, err = l.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, id))
	ok, err = l.Acquire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be reusable after release")
}

func TestMemoryLockerConcurrentAcquire(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()
	id := uuid.New()

	const n = 32
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Acquire(ctx, id)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won, "exactly one concurrent acquire may win")
}

func TestLockKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "medextract:run:6ba7b810-9dad-11d1-80b4-00c04fd430c8", lockKey(id))
}
