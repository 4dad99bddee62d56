package locking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesPerKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

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
			release, err := locker.Lock(ctx, "CIV-2026-00001")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

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
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locker.locks)
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	releaseA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	releaseB()
	releaseB()
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "busy")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	again, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)
	again()
	assert.Empty(t, locker.locks)
}
