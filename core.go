package rwlock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// lockCore is the state shared by the reader and writer handles of one
// RWLock. Every field below mu is guarded by it.
//
// state is 0 when unlocked, the number of shared stakes when positive and
// minus the exclusive recursion depth when negative. owning maps each
// goroutine to the number of stakes it holds, in either mode.
type lockCore struct {
	name        string
	logger      *zap.Logger
	warnTimeout time.Duration
	clock       clockwork.Clock
	stats       lockStats

	mu           sync.Mutex
	changed      chan struct{} // closed and replaced by broadcast
	state        int
	waiting      int // goroutines inside a write acquisition
	pendingReads int // goroutines inside a read acquisition, never used for admission
	owning       map[uint64]int
}

func newLockCore(name string, warnTimeout time.Duration, logger *zap.Logger, clock clockwork.Clock) *lockCore {
	return &lockCore{
		name:        name,
		logger:      logger,
		warnTimeout: warnTimeout,
		clock:       clock,
		changed:     make(chan struct{}),
		owning:      make(map[uint64]int),
	}
}

// broadcast wakes every goroutine blocked in waitFor.
//
// It assumes c.mu is locked.
func (c *lockCore) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *lockCore) acquireRead(ctx context.Context, timeout time.Duration) (bool, error) {
	return c.acquire(ctx, Shared, GetGoroutineID(), timeout)
}

func (c *lockCore) acquireWrite(ctx context.Context, timeout time.Duration) (bool, error) {
	return c.acquire(ctx, Exclusive, GetGoroutineID(), timeout)
}

// acquire runs one acquisition attempt for goroutine me. A negative timeout
// waits without bound and a zero timeout checks exactly once.
func (c *lockCore) acquire(ctx context.Context, mode Mode, me uint64, timeout time.Duration) (ok bool, err error) {
	start := c.clock.Now()
	granted := mode
	var waited bool

	func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		var admit func() (bool, error)
		if mode == Exclusive {
			c.waiting++
			defer func() {
				c.waiting--
				// Readers held back only by the exclusive bias may go now.
				if !ok && c.waiting == 0 {
					c.broadcast()
				}
			}()
			admit = func() (bool, error) { return c.tryWrite(me) }
		} else {
			c.pendingReads++
			defer func() { c.pendingReads-- }()
			admit = func() (bool, error) { return c.tryRead(me) }
		}
		ok, waited, err = c.waitFor(ctx, admit, timeout)
		if ok && c.state < 0 {
			// A read by the writer is granted as one more exclusive stake.
			granted = Exclusive
		}
	}()

	c.observe(granted, me, c.clock.Since(start), ok, waited, err)
	return ok, err
}

// tryRead is the read-admission predicate.
//
// It assumes c.mu is locked.
func (c *lockCore) tryRead(me uint64) (bool, error) {
	if c.state < 0 {
		// Held exclusively: only the owner gets in, as another exclusive stake.
		return c.tryWrite(me)
	}
	// Exclusive bias: once a writer waits, only recursive readers get in.
	if c.waiting > 0 && c.owning[me] == 0 {
		return false, nil
	}
	c.state++
	c.owning[me]++
	return true, nil
}

// tryWrite is the write-admission predicate.
//
// It assumes c.mu is locked.
func (c *lockCore) tryWrite(me uint64) (bool, error) {
	held := c.owning[me] > 0
	if c.state == 0 || (c.state < 0 && held) {
		c.state--
		c.owning[me]++
		return true, nil
	}
	if c.state > 0 && held {
		return false, errors.Annotatef(ErrUpgradeNotSupported, "goroutine %d", me)
	}
	return false, nil
}

// waitFor evaluates pred until it holds, the timeout passes or ctx is done.
// waited reports whether the caller blocked at least once.
//
// It assumes c.mu is locked, and releases it while blocked.
func (c *lockCore) waitFor(ctx context.Context, pred func() (bool, error), timeout time.Duration) (ok, waited bool, err error) {
	if ok, err = pred(); ok || err != nil {
		return ok, false, err
	}
	if timeout == 0 {
		return false, false, nil
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := c.clock.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.Chan()
	}

	for {
		deadline := false
		changed := c.changed
		c.mu.Unlock()
		select {
		case <-changed:
		case <-expired:
			deadline = true
		case <-ctx.Done():
		}
		c.mu.Lock()

		if ok, err = pred(); ok || err != nil {
			return ok, true, err
		}
		if deadline {
			return false, true, nil
		}
		if err := ctx.Err(); err != nil {
			return false, true, err
		}
	}
}

// observe records the outcome of an acquisition and logs the slow ones.
func (c *lockCore) observe(mode Mode, me uint64, wait time.Duration, ok, waited bool, err error) {
	switch {
	case errors.Is(err, ErrUpgradeNotSupported):
		warnOnce(c.logger, fmt.Sprintf("%p/upgrade", c), "read to write upgrade attempted",
			zap.String("lock", c.name), zap.Uint64("goroutine", me))
	case err != nil:
		c.stats.recordTimeout()
		c.logger.Debug("acquisition cancelled",
			zap.String("lock", c.name), zap.Stringer("mode", mode), zap.Uint64("goroutine", me), zap.Error(err))
	case !ok:
		c.stats.recordTimeout()
		c.logger.Debug("acquisition timed out",
			zap.String("lock", c.name), zap.Stringer("mode", mode), zap.Uint64("goroutine", me), zap.Duration("wait", wait))
	default:
		c.stats.recordAcquire(mode, wait, waited)
		if waited && wait > c.warnTimeout {
			c.logger.Warn("lock acquired too slow",
				zap.String("lock", c.name), zap.Stringer("mode", mode), zap.Uint64("goroutine", me),
				zap.Duration("wait", wait), zap.Duration("threshold", c.warnTimeout))
		}
	}
}

// release gives back one stake of the calling goroutine.
func (c *lockCore) release() error {
	me := GetGoroutineID()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.owning[me]
	if n == 0 {
		return errors.Annotatef(ErrUnacquiredRelease, "goroutine %d", me)
	}
	if n == 1 {
		delete(c.owning, me)
	} else {
		c.owning[me] = n - 1
	}

	if c.state > 0 {
		c.state--
	} else {
		c.state++
	}
	if c.state == 0 {
		c.broadcast()
	}
	return nil
}

// isOwned reports whether the calling goroutine holds the lock exclusively.
func (c *lockCore) isOwned() bool {
	me := GetGoroutineID()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state < 0 && c.owning[me] > 0
}

// releaseSave fully releases the exclusive lock held by the caller, however
// deep, and returns the token that restores it.
func (c *lockCore) releaseSave() (Token, error) {
	me := GetGoroutineID()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owning[me] == 0 {
		return Token{}, errors.Annotatef(ErrUnacquiredRelease, "goroutine %d", me)
	}
	if c.state > 0 {
		return Token{}, errors.Annotatef(ErrCapabilityMismatch, "goroutine %d holds a shared stake", me)
	}

	tok := Token{owner: me, depth: c.owning[me]}
	c.owning = make(map[uint64]int)
	c.state = 0
	c.broadcast()
	return tok, nil
}

// acquireRestore takes the exclusive lock again, waiting for any holder that
// got in meanwhile, and puts back the recursion depth captured in tok.
func (c *lockCore) acquireRestore(ctx context.Context, tok Token) error {
	if tok.depth <= 0 {
		return errors.NotValidf("%v", tok)
	}
	if _, err := c.acquireWrite(ctx, Infinite); err != nil {
		return errors.Trace(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.owning = map[uint64]int{tok.owner: tok.depth}
	c.state = -tok.depth
	return nil
}

func (c *lockCore) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		WaitingWriters: c.waiting,
		PendingReaders: c.pendingReads,
		Holders:        make([]Holder, 0, len(c.owning)),
	}
	if c.state > 0 {
		s.ActiveReaders = c.state
	} else {
		s.WriterDepth = -c.state
	}
	for id, n := range c.owning {
		s.Holders = append(s.Holders, Holder{GoroutineID: id, Stakes: n})
	}
	sort.Slice(s.Holders, func(i, j int) bool {
		return s.Holders[i].GoroutineID < s.Holders[j].GoroutineID
	})
	return s
}
