package rwlock

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of a lock's acquisition counters.
type Stats struct {
	ReadAcquired  int64
	WriteAcquired int64
	Contentions   int64 // acquisitions that had to wait at least once
	Timeouts      int64 // acquisitions that timed out or were cancelled
	TotalWait     time.Duration
	MaxWait       time.Duration
}

// lockStats tracks acquisition statistics for one lock
type lockStats struct {
	readAcquired  atomic.Int64
	writeAcquired atomic.Int64
	contentions   atomic.Int64
	timeouts      atomic.Int64
	totalWait     atomic.Int64 // in nanoseconds
	maxWait       atomic.Int64 // in nanoseconds
}

func (s *lockStats) recordAcquire(mode Mode, wait time.Duration, contended bool) {
	if mode == Exclusive {
		s.writeAcquired.Add(1)
	} else {
		s.readAcquired.Add(1)
	}
	if !contended {
		return
	}
	s.contentions.Add(1)
	s.totalWait.Add(int64(wait))

	// Update max wait time if needed
	for {
		current := s.maxWait.Load()
		if int64(wait) <= current {
			break
		}
		if s.maxWait.CompareAndSwap(current, int64(wait)) {
			break
		}
	}
}

func (s *lockStats) recordTimeout() {
	s.timeouts.Add(1)
}

func (s *lockStats) snapshot() Stats {
	return Stats{
		ReadAcquired:  s.readAcquired.Load(),
		WriteAcquired: s.writeAcquired.Load(),
		Contentions:   s.contentions.Load(),
		Timeouts:      s.timeouts.Load(),
		TotalWait:     time.Duration(s.totalWait.Load()),
		MaxWait:       time.Duration(s.maxWait.Load()),
	}
}
