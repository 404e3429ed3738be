/*
Package rwlock provides a reentrant, exclusive-biased reader-writer lock.

An RWLock hands out two views over one shared state: a reader handle for
shared access and a writer handle for exclusive access. Many goroutines may
hold the read lock at once; the write lock is held by at most one goroutine.

Key Features:
  - Reentrant in both modes: a goroutine may re-acquire a lock it holds
  - Exclusive bias: once a writer waits, new readers queue behind it
  - Read-to-write upgrades fail at once with ErrUpgradeNotSupported
  - Blocking, bounded and non-blocking acquisition, plus context cancellation
  - The writer handle can back a Cond that releases and restores the full
    recursion depth around a wait
  - Named locks are registered for DumpAllLockInfo and a Prometheus Collector

Basic Usage:

	lock := rwlock.NewNamed("catalog", time.Second, logger)

	r := lock.Reader()
	r.Lock()
	// ... read-only critical section ...
	r.Unlock()

	err := lock.Writer().With(func() error {
		// ... exclusive critical section ...
		return nil
	})

Ownership is tracked per goroutine: a stake must be released by the
goroutine that acquired it.
*/
package rwlock
