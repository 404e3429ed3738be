package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/christophcemper/rwlock"
)

type config struct {
	Name        string
	Readers     int
	Writers     int
	Depth       int
	Duration    time.Duration
	Hold        time.Duration
	WarnTimeout time.Duration
}

func defaultConfig() config {
	return config{
		Name:     "demo",
		Readers:  5,
		Writers:  1,
		Depth:    2,
		Duration: 2 * time.Second,
		Hold:     time.Millisecond,
	}
}

func (c config) validate() error {
	if c.Readers < 0 || c.Writers < 0 {
		return errors.NotValidf("negative goroutine count")
	}
	if c.Depth < 1 {
		return errors.NotValidf("depth %d", c.Depth)
	}
	if c.Duration <= 0 {
		return errors.NotValidf("duration %v", c.Duration)
	}
	return nil
}

type handle interface {
	AcquireContext(ctx context.Context) error
	Release() error
}

type counters struct {
	reads      atomic.Int64
	writes     atomic.Int64
	violations atomic.Int64
}

// run drives cfg.Readers and cfg.Writers goroutines against one lock until
// cfg.Duration passes or ctx is done, and returns the printed report.
func run(ctx context.Context, cfg config, logger *zap.Logger) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}

	lock := rwlock.NewNamed(cfg.Name, cfg.WarnTimeout, logger)
	defer lock.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var c counters
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Readers; i++ {
		g.Go(func() error {
			return loop(ctx, lock.Reader(), cfg.Depth, cfg.Hold, func() {
				c.reads.Add(1)
				if lock.Snapshot().WriterDepth != 0 {
					c.violations.Add(1)
				}
			})
		})
	}
	for i := 0; i < cfg.Writers; i++ {
		g.Go(func() error {
			return loop(ctx, lock.Writer(), cfg.Depth, cfg.Hold, func() {
				c.writes.Add(1)
				if s := lock.Snapshot(); s.ActiveReaders != 0 || len(s.Holders) != 1 {
					c.violations.Add(1)
				}
			})
		})
	}
	if err := g.Wait(); err != nil {
		return "", errors.Trace(err)
	}

	logger.Info("workload finished",
		zap.String("lock", cfg.Name), zap.Int64("reads", c.reads.Load()), zap.Int64("writes", c.writes.Load()))
	return report(lock, &c), nil
}

func loop(ctx context.Context, h handle, depth int, hold time.Duration, work func()) error {
	for ctx.Err() == nil {
		if err := cycle(ctx, h, depth, hold, work); err != nil {
			return err
		}
	}
	return nil
}

// cycle takes depth recursive stakes, runs work, holds for hold and releases
// every stake it got.
func cycle(ctx context.Context, h handle, depth int, hold time.Duration, work func()) (err error) {
	held := 0
	defer func() {
		for ; held > 0; held-- {
			if rerr := h.Release(); rerr != nil && err == nil {
				err = rerr
			}
		}
	}()

	for held < depth {
		if err := h.AcquireContext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		held++
	}

	work()
	if hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(hold):
		}
	}
	return nil
}

func report(lock *rwlock.RWLock, c *counters) string {
	var b strings.Builder
	st := lock.Stats()
	fmt.Fprintf(&b, "lock %q\n", lock.Name())
	fmt.Fprintf(&b, "  reads: %d, writes: %d, violations: %d\n", c.reads.Load(), c.writes.Load(), c.violations.Load())
	fmt.Fprintf(&b, "  acquired read: %d, write: %d\n", st.ReadAcquired, st.WriteAcquired)
	fmt.Fprintf(&b, "  contentions: %d, timeouts: %d\n", st.Contentions, st.Timeouts)
	fmt.Fprintf(&b, "  total wait: %v, max wait: %v\n\n", st.TotalWait, st.MaxWait)
	b.WriteString(rwlock.DumpAllLockInfo())
	return b.String()
}
