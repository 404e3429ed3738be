package rwlock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/juju/errors"
)

// Conditionable is a lock that can back a Cond: it must identify its
// exclusive owner and be able to fully release and later restore a
// recursively held lock. *WriterHandle implements it; *ReaderHandle
// implements it by failing with ErrCapabilityMismatch.
type Conditionable interface {
	IsOwned() (bool, error)
	ReleaseSave() (Token, error)
	AcquireRestore(Token) error
}

// Cond is a condition variable whose lock is an RWLock's writer handle.
//
// Unlike sync.Cond, waiting releases every recursion level the caller holds
// and restores the same depth before returning.
type Cond struct {
	L Conditionable

	clock   clockwork.Clock
	mu      sync.Mutex
	waiters []chan struct{}
}

// NewCond returns a Cond using l as its lock.
func NewCond(l Conditionable) *Cond {
	return &Cond{L: l, clock: clockwork.NewRealClock()}
}

// WithClock replaces the clock used for wait timeouts and returns c for
// chaining.
func (c *Cond) WithClock(clock clockwork.Clock) *Cond {
	c.clock = clock
	return c
}

// Wait releases the lock, blocks until notified and takes the lock back at
// its previous recursion depth.
func (c *Cond) Wait() error {
	_, err := c.WaitTimeout(Infinite)
	return err
}

// WaitTimeout is Wait bounded by timeout; Infinite waits without bound. It
// reports whether the caller was notified. The lock is held again on return
// either way, unless an error is returned.
func (c *Cond) WaitTimeout(timeout time.Duration) (bool, error) {
	if err := c.checkOwned(); err != nil {
		return false, err
	}

	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	tok, err := c.L.ReleaseSave()
	if err != nil {
		c.forget(ch)
		return false, errors.Trace(err)
	}

	notified := true
	switch {
	case timeout < 0:
		<-ch
	case timeout == 0:
		notified = c.poll(ch)
	default:
		timer := c.clock.NewTimer(timeout)
		select {
		case <-ch:
		case <-timer.Chan():
			notified = c.poll(ch)
		}
		timer.Stop()
	}

	if err := c.L.AcquireRestore(tok); err != nil {
		return notified, errors.Trace(err)
	}
	return notified, nil
}

// poll reports whether ch was notified, and drops it from the waiters when
// it was not.
func (c *Cond) poll(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
	}
	// A notifier may have taken ch between the check above and forget.
	return !c.forget(ch)
}

// forget removes ch from the waiters. It reports whether ch was still there.
func (c *Cond) forget(ch chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// WaitFor waits until pred holds or timeout passes, and returns the last
// result of pred. pred is evaluated with the lock held.
func (c *Cond) WaitFor(pred func() bool, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = c.clock.Now().Add(timeout)
	}
	wait := timeout
	result := pred()
	for !result {
		if timeout >= 0 {
			if !deadline.IsZero() {
				wait = deadline.Sub(c.clock.Now())
			}
			if wait <= 0 {
				break
			}
		}
		if _, err := c.WaitTimeout(wait); err != nil {
			return false, err
		}
		result = pred()
	}
	return result, nil
}

// Signal wakes the longest waiting goroutine, if any. The caller must hold
// the lock.
func (c *Cond) Signal() error {
	return c.notify(1)
}

// Broadcast wakes every waiting goroutine. The caller must hold the lock.
func (c *Cond) Broadcast() error {
	return c.notify(-1)
}

func (c *Cond) notify(n int) error {
	if err := c.checkOwned(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 || n > len(c.waiters) {
		n = len(c.waiters)
	}
	for _, ch := range c.waiters[:n] {
		close(ch)
	}
	c.waiters = c.waiters[n:]
	return nil
}

func (c *Cond) checkOwned() error {
	owned, err := c.L.IsOwned()
	if err != nil {
		return errors.Trace(err)
	}
	if !owned {
		return ErrNotOwned
	}
	return nil
}
