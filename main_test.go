package rwlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// crudeWait is a wait/yield not relying on synchronization primitives.
func crudeWait() {
	time.Sleep(10 * time.Millisecond)
}

// bunch runs f in n goroutines and waits for all of them to finish.
func bunch(t *testing.T, n int, f func() error) {
	t.Helper()
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(f)
	}
	require.NoError(t, g.Wait())
}

// hold acquires h in a new goroutine and keeps the stake until the returned
// function is called.
func hold(t *testing.T, h acquirer) (release func()) {
	t.Helper()
	acquired := make(chan error)
	done := make(chan struct{})
	finished := make(chan error)

	go func() {
		_, err := h.Acquire(true, Infinite)
		acquired <- err
		if err != nil {
			return
		}
		<-done
		finished <- h.Release()
	}()

	require.NoError(t, <-acquired)
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			require.NoError(t, <-finished)
		})
	}
}

// recorder collects observations from many goroutines.
type recorder[T any] struct {
	mu   sync.Mutex
	seen []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.seen...)
}
