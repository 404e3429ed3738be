package rwlock

import "fmt"

// Mode is the access mode of a stake: shared (read) or exclusive (write).
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

// String returns the mode name, or Mode(n) for an unknown value.
func (m Mode) String() string {
	switch m {
	case Shared:
		return "Shared"
	case Exclusive:
		return "Exclusive"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Token is the opaque recursion snapshot produced by ReleaseSave and
// consumed by AcquireRestore. The zero Token restores nothing and is
// rejected.
type Token struct {
	owner uint64
	depth int
}

// Depth returns the exclusive recursion depth captured in the token.
func (t Token) Depth() int {
	return t.depth
}

func (t Token) String() string {
	return fmt.Sprintf("token(goroutine %d, depth %d)", t.owner, t.depth)
}

// Holder is one goroutine holding stakes in a lock.
type Holder struct {
	GoroutineID uint64
	Stakes      int
}

func (h Holder) String() string {
	return fmt.Sprintf("goroutine %d x%d", h.GoroutineID, h.Stakes)
}

// Snapshot is a point-in-time copy of a lock's state.
type Snapshot struct {
	ActiveReaders  int // shared stakes held, recursion counted
	WriterDepth    int // exclusive recursion depth, 0 when not write-locked
	WaitingWriters int
	PendingReaders int
	Holders        []Holder // sorted by goroutine id
}

// Mode reports the mode the lock is held in. ok is false when it is free.
func (s Snapshot) Mode() (mode Mode, ok bool) {
	switch {
	case s.WriterDepth > 0:
		return Exclusive, true
	case s.ActiveReaders > 0:
		return Shared, true
	}
	return Shared, false
}

// WriterActive reports 1 when the lock is held exclusively and 0 otherwise.
func (s Snapshot) WriterActive() int {
	if s.WriterDepth > 0 {
		return 1
	}
	return 0
}
