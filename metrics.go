package rwlock

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the state and counters of every registered lock as
// Prometheus metrics, labelled by lock name.
type Collector struct {
	reg *registry

	activeReaders  *prometheus.Desc
	writerDepth    *prometheus.Desc
	waitingWriters *prometheus.Desc
	pendingReaders *prometheus.Desc
	acquisitions   *prometheus.Desc
	contentions    *prometheus.Desc
	timeouts       *prometheus.Desc
	waitSeconds    *prometheus.Desc
	maxWaitSeconds *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector over the global registry.
func NewCollector() *Collector {
	return newCollector(globalRegistry)
}

func newCollector(reg *registry) *Collector {
	lock := []string{"lock"}
	return &Collector{
		reg:            reg,
		activeReaders:  prometheus.NewDesc("rwlock_active_readers", "Shared stakes currently held.", lock, nil),
		writerDepth:    prometheus.NewDesc("rwlock_writer_depth", "Exclusive recursion depth currently held.", lock, nil),
		waitingWriters: prometheus.NewDesc("rwlock_waiting_writers", "Goroutines waiting for the write lock.", lock, nil),
		pendingReaders: prometheus.NewDesc("rwlock_pending_readers", "Goroutines waiting for the read lock.", lock, nil),
		acquisitions:   prometheus.NewDesc("rwlock_acquisitions_total", "Successful acquisitions.", []string{"lock", "mode"}, nil),
		contentions:    prometheus.NewDesc("rwlock_contentions_total", "Acquisitions that had to wait.", lock, nil),
		timeouts:       prometheus.NewDesc("rwlock_timeouts_total", "Acquisitions that timed out or were cancelled.", lock, nil),
		waitSeconds:    prometheus.NewDesc("rwlock_wait_seconds_total", "Time spent waiting by contended acquisitions.", lock, nil),
		maxWaitSeconds: prometheus.NewDesc("rwlock_wait_seconds_max", "Longest wait of a contended acquisition.", lock, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeReaders
	ch <- c.writerDepth
	ch <- c.waitingWriters
	ch <- c.pendingReaders
	ch <- c.acquisitions
	ch <- c.contentions
	ch <- c.timeouts
	ch <- c.waitSeconds
	ch <- c.maxWaitSeconds
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, l := range c.reg.getAll() {
		name := l.core.name
		s := l.Snapshot()
		st := l.Stats()

		gauge := func(d *prometheus.Desc, v float64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, append([]string{name}, labels...)...)
		}
		counter := func(d *prometheus.Desc, v float64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, append([]string{name}, labels...)...)
		}

		gauge(c.activeReaders, float64(s.ActiveReaders))
		gauge(c.writerDepth, float64(s.WriterDepth))
		gauge(c.waitingWriters, float64(s.WaitingWriters))
		gauge(c.pendingReaders, float64(s.PendingReaders))
		counter(c.acquisitions, float64(st.ReadAcquired), "read")
		counter(c.acquisitions, float64(st.WriteAcquired), "write")
		counter(c.contentions, float64(st.Contentions))
		counter(c.timeouts, float64(st.Timeouts))
		counter(c.waitSeconds, st.TotalWait.Seconds())
		gauge(c.maxWaitSeconds, st.MaxWait.Seconds())
	}
}
