package cache

import (
	"sync"

	"github.com/IvanBrykalov/blockcache/internal/util"
)

const defaultStatsWindow = 5

// CacheStats holds the running counters of a cache.
// Counters are padded atomics; the rolling hit-ratio window has its own lock
// and is only touched when a period is rolled or read.
type CacheStats struct {
	hits         util.PaddedAtomicUint64
	misses       util.PaddedAtomicUint64
	evictedBytes util.PaddedAtomicUint64
	evicted      util.PaddedAtomicUint64 // blocks
	sweeps       util.PaddedAtomicUint64

	workloads sync.Map // WorkloadID -> *util.PaddedAtomicUint64

	mu         sync.Mutex
	windowHits []uint64
	windowReqs []uint64
	windowIdx  int
	windowFull bool
	lastHits   uint64
	lastReqs   uint64
}

func newCacheStats(window int) *CacheStats {
	window = max(window, 1)
	return &CacheStats{
		windowHits: make([]uint64, window),
		windowReqs: make([]uint64, window),
	}
}

func (s *CacheStats) hit()  { s.hits.Add(1) }
func (s *CacheStats) miss() { s.misses.Add(1) }

func (s *CacheStats) evict(bytes int64) {
	s.evicted.Add(1)
	s.evictedBytes.Add(uint64(bytes))
}

func (s *CacheStats) sweep() { s.sweeps.Add(1) }

// access counts one request made on behalf of w.
func (s *CacheStats) access(w WorkloadID) {
	v, ok := s.workloads.Load(w)
	if !ok {
		v, _ = s.workloads.LoadOrStore(w, new(util.PaddedAtomicUint64))
	}
	v.(*util.PaddedAtomicUint64).Add(1)
}

// HitCount returns the number of Get hits.
func (s *CacheStats) HitCount() uint64 { return s.hits.Load() }

// MissCount returns the number of Get misses.
func (s *CacheStats) MissCount() uint64 { return s.misses.Load() }

// RequestCount returns hits plus misses.
func (s *CacheStats) RequestCount() uint64 { return s.HitCount() + s.MissCount() }

// EvictedCount returns the number of entries removed for any reason.
func (s *CacheStats) EvictedCount() uint64 { return s.evicted.Load() }

// EvictedBytes returns the estimated bytes released by evictions.
func (s *CacheStats) EvictedBytes() uint64 { return s.evictedBytes.Load() }

// SweepCount returns the number of eviction sweeps that ran.
func (s *CacheStats) SweepCount() uint64 { return s.sweeps.Load() }

// HitRatio is hits over requests since the cache was built (0 when idle).
func (s *CacheStats) HitRatio() float64 {
	return ratio(s.HitCount(), s.RequestCount())
}

// WorkloadAccesses returns the request count per workload tag.
func (s *CacheStats) WorkloadAccesses() map[WorkloadID]uint64 {
	out := make(map[WorkloadID]uint64)
	s.workloads.Range(func(k, v any) bool {
		out[k.(WorkloadID)] = v.(*util.PaddedAtomicUint64).Load()
		return true
	})
	return out
}

// rollPeriod closes the current period and records its hits and requests
// into the window.
func (s *CacheStats) rollPeriod() {
	hits, reqs := s.HitCount(), s.RequestCount()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowHits[s.windowIdx] = hits - s.lastHits
	s.windowReqs[s.windowIdx] = reqs - s.lastReqs
	s.lastHits, s.lastReqs = hits, reqs
	s.windowIdx++
	if s.windowIdx == len(s.windowHits) {
		s.windowIdx = 0
		s.windowFull = true
	}
}

// HitRatioPastN is the hit ratio over the completed periods in the window.
func (s *CacheStats) HitRatioPastN() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.windowIdx
	if s.windowFull {
		n = len(s.windowHits)
	}
	var hits, reqs uint64
	for i := 0; i < n; i++ {
		hits += s.windowHits[i]
		reqs += s.windowReqs[i]
	}
	return ratio(hits, reqs)
}

func ratio(a, b uint64) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Stats is a point-in-time view of the cache. It is derived state and never
// authoritative for eviction decisions.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Evicted       uint64 // blocks removed for any reason
	EvictedBytes  uint64
	Sweeps        uint64
	Readmissions  uint64 // ghost keys cached again
	HitRatio      float64
	HitRatioPastN float64

	Blocks        int64
	Bytes         int64
	Capacity      int64
	PriorityBytes [3]int64 // indexed by BlockPriority

	WorkloadAccesses map[WorkloadID]uint64
}
