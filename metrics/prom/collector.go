package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/blockcache/cache"
)

// StatsSource is anything that can produce a cache statistics snapshot.
type StatsSource interface {
	Stats() cache.Stats
}

// Collector reads a Stats snapshot on every scrape. It covers what the push
// hooks cannot: capacity, occupancy per priority, the rolling hit ratio and
// re-admissions.
type Collector struct {
	src StatsSource

	capacity      *prometheus.Desc
	priorityBytes *prometheus.Desc
	hitRatio      *prometheus.Desc
	hitRatioPastN *prometheus.Desc
	readmissions  *prometheus.Desc
}

// NewCollector builds a collector for src. Register it with a registry.
func NewCollector(src StatsSource, ns, sub string, constLabels prometheus.Labels) *Collector {
	fq := func(name string) string { return prometheus.BuildFQName(ns, sub, name) }
	return &Collector{
		src:           src,
		capacity:      prometheus.NewDesc(fq("capacity_bytes"), "Configured byte budget", nil, constLabels),
		priorityBytes: prometheus.NewDesc(fq("priority_bytes"), "Estimated bytes held per block priority", []string{"priority"}, constLabels),
		hitRatio:      prometheus.NewDesc(fq("hit_ratio"), "Hit ratio since the cache was built", nil, constLabels),
		hitRatioPastN: prometheus.NewDesc(fq("hit_ratio_past_n"), "Hit ratio over the last statistics periods", nil, constLabels),
		readmissions:  prometheus.NewDesc(fq("readmissions_total"), "Blocks cached again shortly after a sweep evicted them", nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.priorityBytes
	ch <- c.hitRatio
	ch <- c.hitRatioPastN
	ch <- c.readmissions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(st.Capacity))
	for p, b := range st.PriorityBytes {
		ch <- prometheus.MustNewConstMetric(c.priorityBytes, prometheus.GaugeValue, float64(b), cache.BlockPriority(p).String())
	}
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, st.HitRatio)
	ch <- prometheus.MustNewConstMetric(c.hitRatioPastN, prometheus.GaugeValue, st.HitRatioPastN)
	ch <- prometheus.MustNewConstMetric(c.readmissions, prometheus.CounterValue, float64(st.Readmissions))
}

var _ prometheus.Collector = (*Collector)(nil)
