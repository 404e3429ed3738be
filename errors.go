package rwlock

import "github.com/juju/errors"

const (
	// ErrUnacquiredRelease is returned when a goroutine releases a lock it
	// holds no stake in.
	ErrUnacquiredRelease = errors.ConstError("cannot release an un-acquired lock")

	// ErrUpgradeNotSupported is returned when a goroutine holding only a
	// shared stake asks for the exclusive lock. The attempt fails at once and
	// the shared stake is kept.
	ErrUpgradeNotSupported = errors.ConstError("cannot upgrade from read to write")

	// ErrInvalidTimeout is returned for a timeout outside the range accepted
	// by the requested blocking mode.
	ErrInvalidTimeout = errors.ConstError("invalid timeout")

	// ErrCapabilityMismatch is returned when the reader handle is used where
	// exclusive ownership is required, e.g. as the lock behind a Cond.
	ErrCapabilityMismatch = errors.ConstError("a reader lock cannot be used with a condition")

	// ErrNotOwned is returned when a Cond is waited on or notified without
	// the caller holding its lock.
	ErrNotOwned = errors.ConstError("cannot use a condition on an un-acquired lock")
)
