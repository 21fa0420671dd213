// Package prom exports block cache metrics to Prometheus: an Adapter that
// receives the cache's push hooks and a Collector that reads Stats snapshots
// at scrape time.
package prom

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/blockcache/cache"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits         *prometheus.CounterVec
	misses       prometheus.Counter
	evicts       *prometheus.CounterVec
	evictedBytes *prometheus.CounterVec
	sweeps       prometheus.Counter
	sweepFreed   prometheus.Counter
	sweepSeconds prometheus.Histogram
	sizeBlocks   prometheus.Gauge
	sizeBytes    prometheus.Gauge
	accesses     *prometheus.CounterVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}

	a := &Adapter{
		hits:         counterVec("hits_total", "Block cache hits by block priority", "priority"),
		misses:       counter("misses_total", "Block cache misses"),
		evicts:       counterVec("evictions_total", "Blocks evicted by reason and priority", "reason", "priority"),
		evictedBytes: counterVec("evicted_bytes_total", "Estimated bytes released by evictions", "reason"),
		sweeps:       counter("sweeps_total", "Eviction sweeps run"),
		sweepFreed:   counter("sweep_freed_bytes_total", "Estimated bytes freed by eviction sweeps"),
		sweepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "sweep_duration_seconds",
			Help:        "Time spent in one eviction sweep",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 8),
			ConstLabels: constLabels,
		}),
		sizeBlocks: gauge("size_blocks", "Number of cached blocks"),
		sizeBytes:  gauge("size_bytes", "Estimated bytes held by cached blocks"),
		accesses:   counterVec("workload_requests_total", "Block requests by workload", "workload"),
	}
	reg.MustRegister(
		a.hits, a.misses, a.evicts, a.evictedBytes,
		a.sweeps, a.sweepFreed, a.sweepSeconds,
		a.sizeBlocks, a.sizeBytes, a.accesses,
	)
	return a
}

// Hit increments the hit counter for the block's priority.
func (a *Adapter) Hit(p cache.BlockPriority) { a.hits.WithLabelValues(p.String()).Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict counts one evicted block.
func (a *Adapter) Evict(r cache.EvictReason, p cache.BlockPriority, bytes int64) {
	a.evicts.WithLabelValues(r.String(), p.String()).Inc()
	a.evictedBytes.WithLabelValues(r.String()).Add(float64(bytes))
}

// Sweep records one finished sweep.
func (a *Adapter) Sweep(freed int64, took time.Duration) {
	a.sweeps.Inc()
	a.sweepFreed.Add(float64(freed))
	a.sweepSeconds.Observe(took.Seconds())
}

// Size updates gauges for the number of blocks and their estimated bytes.
func (a *Adapter) Size(blocks, bytes int64) {
	a.sizeBlocks.Set(float64(blocks))
	a.sizeBytes.Set(float64(bytes))
}

// Access counts one request made on behalf of w.
func (a *Adapter) Access(w cache.WorkloadID) {
	a.accesses.WithLabelValues(strconv.Itoa(int(w))).Inc()
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
