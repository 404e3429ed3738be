package rwlock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func waiters(c *Cond) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func TestCondWaitRestoresDepth(t *testing.T) {
	lock := New()
	w := lock.Writer()
	cond := NewCond(w)
	ready := false

	result := make(chan error)
	go func() {
		w.Lock()
		w.Lock()
		for !ready {
			if err := cond.Wait(); err != nil {
				result <- err
				return
			}
		}
		owned, _ := w.IsOwned()
		assert.True(t, owned)
		assert.Equal(t, 2, lock.Snapshot().WriterDepth)
		w.Unlock()
		w.Unlock()
		result <- nil
	}()

	require.Eventually(t, func() bool { return waiters(cond) == 1 }, time.Second, time.Millisecond)

	// The waiter gave up both levels, so the lock is free for us.
	w.Lock()
	assert.Equal(t, 1, lock.Snapshot().WriterDepth)
	ready = true
	require.NoError(t, cond.Signal())
	w.Unlock()

	require.NoError(t, <-result)
	assert.Empty(t, lock.Snapshot().Holders)
}

func TestCondBroadcast(t *testing.T) {
	lock := New()
	w := lock.Writer()
	cond := NewCond(w)
	count := 0

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return w.With(func() error {
				ok, err := cond.WaitFor(func() bool { return count >= 3 }, Infinite)
				if err != nil {
					return err
				}
				assert.True(t, ok)
				return nil
			})
		})
	}

	require.Eventually(t, func() bool { return waiters(cond) == n }, time.Second, time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.With(func() error {
			count++
			return cond.Broadcast()
		}))
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, waiters(cond))
}

func TestCondSignalWakesOne(t *testing.T) {
	lock := New()
	w := lock.Writer()
	cond := NewCond(w)

	woken := make(chan struct{}, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			return w.With(func() error {
				if err := cond.Wait(); err != nil {
					return err
				}
				woken <- struct{}{}
				return nil
			})
		})
	}
	require.Eventually(t, func() bool { return waiters(cond) == 2 }, time.Second, time.Millisecond)

	require.NoError(t, w.With(cond.Signal))
	<-woken
	assert.Equal(t, 1, waiters(cond))

	require.NoError(t, w.With(cond.Signal))
	require.NoError(t, g.Wait())
	assert.Len(t, woken, 1)
}

func TestCondWaitTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lock := New()
	w := lock.Writer()
	cond := NewCond(w).WithClock(clock)

	result := make(chan bool)
	go func() {
		w.Lock()
		notified, err := cond.WaitTimeout(time.Second)
		assert.NoError(t, err)
		owned, _ := w.IsOwned()
		assert.True(t, owned)
		w.Unlock()
		result <- notified
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	assert.False(t, <-result)
	assert.Zero(t, waiters(cond))
	assert.Empty(t, lock.Snapshot().Holders)
}

func TestCondWaitForTimeout(t *testing.T) {
	w := New().Writer()
	cond := NewCond(w)

	w.Lock()
	defer w.Unlock()
	ok, err := cond.WaitFor(func() bool { return false }, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, waiters(cond))
}

func TestCondRequiresOwnership(t *testing.T) {
	lock := New()
	cond := NewCond(lock.Writer())

	require.ErrorIs(t, cond.Wait(), ErrNotOwned)
	require.ErrorIs(t, cond.Signal(), ErrNotOwned)
	require.ErrorIs(t, cond.Broadcast(), ErrNotOwned)

	// Held by another goroutine is not owned either.
	release := hold(t, lock.Writer())
	defer release()
	require.ErrorIs(t, cond.Signal(), ErrNotOwned)
}

func TestCondWithReaderLock(t *testing.T) {
	lock := New()
	cond := NewCond(lock.Reader())

	lock.Reader().Lock()
	defer lock.Reader().Unlock()
	require.ErrorIs(t, cond.Wait(), ErrCapabilityMismatch)
	require.ErrorIs(t, cond.Signal(), ErrCapabilityMismatch)
	assert.Zero(t, waiters(cond))
}
