package cache

import (
	"time"

	"github.com/go-kit/log/level"

	"github.com/IvanBrykalov/blockcache/policy"
)

// Sweep evicts blocks chosen by the policy until occupancy is at or below
// targetBytes (or nothing is left) and returns the bytes freed.
// It waits for a sweep already in progress to finish first.
//
// OnEvict callbacks run inside the sweep and must not call Sweep.
func (c *LRUBlockCache) Sweep(targetBytes int64) int64 {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	return c.sweepLocked(max(targetBytes, 0))
}

// requestSweep hands the sweep to the eviction goroutine, or runs it inline
// when there is none. An inline request that finds a sweep already running
// is dropped: that sweep, or the next Put, takes care of it.
func (c *LRUBlockCache) requestSweep() {
	if c.trigger != nil {
		select {
		case c.trigger <- struct{}{}:
		default: // a wakeup is already pending
		}
		return
	}
	if !c.sweepMu.TryLock() {
		return
	}
	defer c.sweepMu.Unlock()
	c.sweepLocked(c.minSize())
}

// sweepLocked runs one sweep. Caller holds sweepMu.
//
// The shards are snapshotted one at a time under their read locks, the
// policy orders the snapshot into victims, and each victim is removed under
// its shard lock only if it is still the live entry for its key. Entries
// inserted after the snapshot are never evicted by this sweep.
func (c *LRUBlockCache) sweepLocked(target int64) int64 {
	if c.occ.bytes.Load() <= target {
		return 0
	}
	start := c.now()

	n := int(c.occ.blocks.Load())
	refs := make(map[BlockCacheKey]*CachedBlock, n)
	cands := make([]policy.Candidate[BlockCacheKey], 0, n)
	for _, s := range c.shards {
		cands = s.snapshot(cands, refs)
	}
	var snapBytes int64
	for _, cand := range cands {
		snapBytes += cand.Size
	}

	var freed int64
	var evicted int
	for _, v := range c.pol.Victims(cands, snapBytes, target) {
		if c.occ.bytes.Load() <= target {
			break
		}
		b := refs[v.Key]
		if b == nil || !c.getShard(v.Key).removeIfSame(b) {
			continue
		}
		freed += b.size
		evicted++
		c.ghosts.evicted(b.key)
		c.notifyEvict(b, EvictSweep)
	}

	took := time.Duration(c.now() - start)
	c.stats.sweep()
	c.opt.Metrics.Sweep(freed, took)
	c.reportSize()
	level.Debug(c.logger).Log(
		"msg", "block cache sweep",
		"target", target,
		"freed", freed,
		"evicted", evicted,
		"size", c.occ.bytes.Load(),
		"took", took,
	)
	return freed
}

// evictionLoop serves sweep requests until Close.
func (c *LRUBlockCache) evictionLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.trigger:
			c.sweepMu.Lock()
			if c.occ.bytes.Load() > c.acceptableSize() {
				c.sweepLocked(c.minSize())
			}
			c.sweepMu.Unlock()
		}
	}
}

// statsLoop rolls the hit-ratio window and logs a summary every period.
func (c *LRUBlockCache) statsLoop(period time.Duration) {
	defer c.wg.Done()
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			c.stats.rollPeriod()
			c.logStats()
		}
	}
}

func (c *LRUBlockCache) logStats() {
	s := c.stats
	level.Info(c.logger).Log(
		"msg", "block cache stats",
		"size", c.Size(),
		"free", c.FreeSize(),
		"max", c.Capacity(),
		"blocks", c.Len(),
		"accesses", s.RequestCount(),
		"hits", s.HitCount(),
		"hit_ratio", s.HitRatio(),
		"hit_ratio_past_n", s.HitRatioPastN(),
		"evicted", s.EvictedCount(),
		"sweeps", s.SweepCount(),
		"readmissions", c.ghosts.readmissions(),
	)
}
