// Copyright (c) 2024 Christoph C. Cemper
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package rwlock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Infinite passed as a blocking timeout waits until the lock is acquired.
const Infinite time.Duration = -1

// RWLock maintains a pair of associated locks, one for read-only operations
// and one for writing. The read lock may be held simultaneously by multiple
// reader goroutines, so long as there are no writers. The write lock is
// exclusive.
//
// Both locks are reentrant for the goroutine holding them. A goroutine
// holding the write lock may also take the read lock, which counts as one
// more write stake. A goroutine holding only the read lock cannot take the
// write lock: that fails with ErrUpgradeNotSupported.
//
// Waiting writers are preferred over new readers.
type RWLock struct {
	core   *lockCore
	reader ReaderHandle
	writer WriterHandle
}

// New creates an unnamed RWLock that logs nothing and is not registered.
func New() *RWLock {
	return newRWLock(newLockCore("", DefaultWarnTimeout(), zap.NewNop(), clockwork.NewRealClock()))
}

// NewNamed creates an RWLock registered under name in the global registry.
// Acquisitions that wait longer than warnTimeout are logged at warn level;
// a warnTimeout <= 0 selects DefaultWarnTimeout. A nil logger logs nothing.
func NewNamed(name string, warnTimeout time.Duration, logger *zap.Logger) *RWLock {
	if warnTimeout <= 0 {
		warnTimeout = DefaultWarnTimeout()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := newRWLock(newLockCore(name, warnTimeout, logger.Named("rwlock"), clockwork.NewRealClock()))

	globalRegistry.register(l)
	return l
}

func newRWLock(core *lockCore) *RWLock {
	l := &RWLock{core: core}
	l.reader.core = core
	l.writer.core = core
	return l
}

// WithClock replaces the clock used for timeouts and wait statistics and
// returns the lock for chaining. It must be called before the lock is used.
func (l *RWLock) WithClock(clock clockwork.Clock) *RWLock {
	l.core.clock = clock
	return l
}

// Name returns the name the lock was registered under.
func (l *RWLock) Name() string { return l.core.name }

// Reader returns the handle used for read, or shared, access.
func (l *RWLock) Reader() *ReaderHandle { return &l.reader }

// Writer returns the handle used for write, or exclusive, access.
func (l *RWLock) Writer() *WriterHandle { return &l.writer }

// RLocker returns a sync.Locker that takes the read lock.
func (l *RWLock) RLocker() sync.Locker { return &l.reader }

// Snapshot returns a copy of the lock's current state.
func (l *RWLock) Snapshot() Snapshot { return l.core.snapshot() }

// Stats returns the lock's acquisition counters.
func (l *RWLock) Stats() Stats { return l.core.stats.snapshot() }

// Close removes the lock from the global registry. A lock that is still held
// stays registered and a warning is logged.
func (l *RWLock) Close() {
	s := l.Snapshot()
	if len(s.Holders) > 0 {
		l.core.logger.Warn("attempting to close lock with active holders",
			zap.String("lock", l.core.name), zap.Int("readers", s.ActiveReaders), zap.Int("writer_depth", s.WriterDepth))
		return
	}
	globalRegistry.unregister(l)
}

// coreTimeout translates the (blocking, timeout) convention into the core's,
// where a negative value waits forever and zero checks exactly once.
func coreTimeout(blocking bool, timeout time.Duration) (time.Duration, error) {
	if timeout < 0 && timeout != Infinite {
		return 0, errors.Annotatef(ErrInvalidTimeout, "%v", timeout)
	}
	if blocking {
		return timeout, nil
	}
	if timeout > 0 {
		return 0, errors.Annotate(ErrInvalidTimeout, "cannot specify a timeout when non-blocking")
	}
	return 0, nil
}

// ReaderHandle is the shared side of an RWLock.
type ReaderHandle struct {
	core *lockCore
}

// Acquire takes a shared stake. With blocking set it waits up to timeout, or
// forever for Infinite; otherwise it checks once. It reports false when the
// lock could not be taken in time.
func (h *ReaderHandle) Acquire(blocking bool, timeout time.Duration) (bool, error) {
	t, err := coreTimeout(blocking, timeout)
	if err != nil {
		return false, err
	}
	return h.core.acquireRead(context.Background(), t)
}

// AcquireContext takes a shared stake, blocking until it is granted or ctx is
// done.
func (h *ReaderHandle) AcquireContext(ctx context.Context) error {
	_, err := h.core.acquireRead(ctx, Infinite)
	return err
}

// Release gives back one stake held by the calling goroutine.
func (h *ReaderHandle) Release() error {
	return h.core.release()
}

// Lock implements sync.Locker. It panics on usage errors.
func (h *ReaderHandle) Lock() {
	if _, err := h.core.acquireRead(context.Background(), Infinite); err != nil {
		panic(err)
	}
}

// Unlock implements sync.Locker. It panics if the caller holds no stake.
func (h *ReaderHandle) Unlock() {
	if err := h.Release(); err != nil {
		panic(err)
	}
}

// TryLock takes a shared stake without waiting.
func (h *ReaderHandle) TryLock() bool {
	ok, _ := h.core.acquireRead(context.Background(), 0)
	return ok
}

// With runs fn while holding a shared stake.
func (h *ReaderHandle) With(fn func() error) error {
	return with(h, fn)
}

// Scoped takes a shared stake and returns the function releasing it.
func (h *ReaderHandle) Scoped() (unlock func(), err error) {
	return scoped(h)
}

// IsOwned always fails: shared ownership cannot back a condition.
func (h *ReaderHandle) IsOwned() (bool, error) {
	return false, ErrCapabilityMismatch
}

// ReleaseSave always fails with ErrCapabilityMismatch.
func (h *ReaderHandle) ReleaseSave() (Token, error) {
	return Token{}, ErrCapabilityMismatch
}

// AcquireRestore always fails with ErrCapabilityMismatch.
func (h *ReaderHandle) AcquireRestore(Token) error {
	return ErrCapabilityMismatch
}

// WriterHandle is the exclusive side of an RWLock.
type WriterHandle struct {
	core *lockCore
}

// Acquire takes an exclusive stake, with the same timeout convention as
// ReaderHandle.Acquire. A goroutine holding only shared stakes gets
// ErrUpgradeNotSupported at once.
func (h *WriterHandle) Acquire(blocking bool, timeout time.Duration) (bool, error) {
	t, err := coreTimeout(blocking, timeout)
	if err != nil {
		return false, err
	}
	return h.core.acquireWrite(context.Background(), t)
}

// AcquireContext takes an exclusive stake, blocking until it is granted or
// ctx is done.
func (h *WriterHandle) AcquireContext(ctx context.Context) error {
	_, err := h.core.acquireWrite(ctx, Infinite)
	return err
}

// Release gives back one stake held by the calling goroutine.
func (h *WriterHandle) Release() error {
	return h.core.release()
}

// Lock implements sync.Locker. It panics on usage errors, including an
// upgrade attempt.
func (h *WriterHandle) Lock() {
	if _, err := h.core.acquireWrite(context.Background(), Infinite); err != nil {
		panic(err)
	}
}

// Unlock implements sync.Locker. It panics if the caller holds no stake.
func (h *WriterHandle) Unlock() {
	if err := h.Release(); err != nil {
		panic(err)
	}
}

// TryLock takes an exclusive stake without waiting. Like Lock, it panics
// when the caller holds only shared stakes instead of reporting contention.
func (h *WriterHandle) TryLock() bool {
	ok, err := h.core.acquireWrite(context.Background(), 0)
	if err != nil {
		panic(err)
	}
	return ok
}

// With runs fn while holding an exclusive stake.
func (h *WriterHandle) With(fn func() error) error {
	return with(h, fn)
}

// Scoped takes an exclusive stake and returns the function releasing it.
func (h *WriterHandle) Scoped() (unlock func(), err error) {
	return scoped(h)
}

// IsOwned reports whether the calling goroutine holds the write lock.
func (h *WriterHandle) IsOwned() (bool, error) {
	return h.core.isOwned(), nil
}

// ReleaseSave fully releases the write lock held by the caller, whatever its
// recursion depth, and returns the token for AcquireRestore.
func (h *WriterHandle) ReleaseSave() (Token, error) {
	return h.core.releaseSave()
}

// AcquireRestore waits for the write lock and restores the recursion depth
// captured by ReleaseSave.
func (h *WriterHandle) AcquireRestore(tok Token) error {
	return h.core.acquireRestore(context.Background(), tok)
}

type acquirer interface {
	Acquire(blocking bool, timeout time.Duration) (bool, error)
	Release() error
}

func with(h acquirer, fn func() error) error {
	unlock, err := scoped(h)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func scoped(h acquirer) (func(), error) {
	if _, err := h.Acquire(true, Infinite); err != nil {
		return nil, errors.Trace(err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := h.Release(); err != nil {
				panic(err)
			}
		})
	}, nil
}
