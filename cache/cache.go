package cache

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/IvanBrykalov/blockcache/internal/util"
	"github.com/IvanBrykalov/blockcache/policy"
	"github.com/IvanBrykalov/blockcache/policy/tiered"
)

// maxPayloadSize keeps size estimates far from int64 overflow.
const maxPayloadSize = math.MaxInt64 / 4

// LRUBlockCache is a byte-bounded block cache with tiered-priority eviction.
// It is safe for concurrent use by multiple goroutines.
type LRUBlockCache struct {
	shards []*shard
	occ    occupancy
	index  *fileIndex
	ghosts *ghostList
	stats  *CacheStats

	// tick is the logical access clock. Every Get hit and Put takes the
	// next value, so access times are unique and strictly ordered.
	tick    util.PaddedAtomicInt64
	maxSize atomic.Int64

	opt    Options
	pol    policy.Policy[BlockCacheKey]
	logger log.Logger

	sweepMu   sync.Mutex    // one sweep at a time
	trigger   chan struct{} // nil unless EvictionThread
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	// sf coalesces GetOrLoad fetches per key.
	sf        singleflight.Group
	oversized rate.Sometimes
}

var _ BlockCache = (*LRUBlockCache)(nil)

// New constructs a cache with the provided Options.
// Defaults are documented on Options; the resulting Config must validate.
func New(opt Options) (*LRUBlockCache, error) {
	opt.Config = opt.Config.withDefaults()
	if err := opt.Config.Validate(); err != nil {
		return nil, err
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = log.NewNopLogger()
	}
	if opt.Policy == nil {
		opt.Policy = tiered.New[BlockCacheKey](opt.SingleFactor, opt.MultiFactor, opt.MemoryFactor)
	}
	ghosts, err := newGhostList(opt.GhostCapacity)
	if err != nil {
		return nil, fmt.Errorf("create ghost list: %w", err)
	}

	c := &LRUBlockCache{
		shards:    make([]*shard, util.ShardCount(opt.Shards)),
		index:     newFileIndex(),
		ghosts:    ghosts,
		stats:     newCacheStats(opt.StatsWindow),
		opt:       opt,
		pol:       opt.Policy,
		logger:    log.With(opt.Logger, "component", "blockcache"),
		done:      make(chan struct{}),
		oversized: rate.Sometimes{First: 1, Interval: time.Minute},
	}
	c.maxSize.Store(opt.MaxSizeBytes)
	for i := range c.shards {
		c.shards[i] = newShard(&c.occ, c.index)
	}

	if opt.EvictionThread {
		c.trigger = make(chan struct{}, 1)
		c.wg.Add(1)
		go c.evictionLoop()
	}
	if opt.StatsPeriod > 0 {
		c.wg.Add(1)
		go c.statsLoop(opt.StatsPeriod)
	}
	return c, nil
}

// ---- BlockCache implementation ----

// Get returns the payload for k on behalf of DefaultWorkload.
func (c *LRUBlockCache) Get(k BlockCacheKey) (Cacheable, bool) {
	return c.GetAs(DefaultWorkload, k)
}

// GetAs returns the payload for k and records the access for workload w.
func (c *LRUBlockCache) GetAs(w WorkloadID, k BlockCacheKey) (Cacheable, bool) {
	if c.closed.Load() {
		return nil, false
	}
	c.stats.access(w)
	c.opt.Metrics.Access(w)

	b := c.getShard(k).get(k)
	if b == nil {
		c.stats.miss()
		c.opt.Metrics.Miss()
		return nil, false
	}
	// hits are attributed to the tier the block was found in
	prev := b.RecordAccess(c.nextTick(), w)
	b.IncrementAccessCount()
	c.stats.hit()
	c.opt.Metrics.Hit(prev)
	return b.buf, true
}

// Peek returns the payload and priority of k without touching recency,
// priority or statistics.
func (c *LRUBlockCache) Peek(k BlockCacheKey) (Cacheable, BlockPriority, bool) {
	b := c.getShard(k).get(k)
	if b == nil {
		return nil, PrioritySingle, false
	}
	return b.buf, b.Priority(), true
}

// Put caches v under k on behalf of DefaultWorkload.
func (c *LRUBlockCache) Put(k BlockCacheKey, v Cacheable, inMemory bool) error {
	return c.PutAs(DefaultWorkload, k, v, inMemory)
}

// PutAs caches v under k, tagged with workload w. An existing entry for k
// is replaced and its size released first. When occupancy crosses the
// acceptable threshold a sweep runs (inline or on the eviction goroutine).
func (c *LRUBlockCache) PutAs(w WorkloadID, k BlockCacheKey, v Cacheable, inMemory bool) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if v == nil {
		return ErrNilPayload
	}
	if hs := v.HeapSize(); hs < 0 || hs > maxPayloadSize {
		level.Warn(c.logger).Log("msg", "rejecting block with invalid heap size", "key", k, "heap_size", hs)
		return fmt.Errorf("%w: block %s reports %d bytes", ErrInvalidSize, k, hs)
	}

	b := newCachedBlock(k, v, c.nextTick(), inMemory, c.opt.PerBlockOverhead)
	b.SetWorkload(w)
	if limit := c.maxSize.Load(); b.size > limit {
		c.oversized.Do(func() {
			level.Warn(c.logger).Log("msg", "caching block larger than the whole cache", "key", k, "size", b.size, "max_size", limit)
		})
	}

	if old := c.getShard(k).put(b); old == nil {
		c.ghosts.admitted(k)
	}
	c.reportSize()

	if c.occ.bytes.Load() > c.acceptableSize() {
		c.requestSweep()
	}
	return nil
}

// Evict removes k if present.
func (c *LRUBlockCache) Evict(k BlockCacheKey) bool {
	if c.closed.Load() {
		return false
	}
	b := c.getShard(k).remove(k)
	if b == nil {
		return false
	}
	c.notifyEvict(b, EvictExplicit)
	c.reportSize()
	return true
}

// EvictByFile removes every cached block of fileID in both layouts.
// Blocks of the file cached concurrently with the call may survive it.
func (c *LRUBlockCache) EvictByFile(fileID string) int {
	if c.closed.Load() {
		return 0
	}
	n := 0
	for _, k := range c.index.keys(fileID) {
		if b := c.getShard(k).remove(k); b != nil {
			n++
			c.notifyEvict(b, EvictFile)
		}
	}
	if n > 0 {
		c.reportSize()
		level.Debug(c.logger).Log("msg", "evicted blocks of file", "file", fileID, "blocks", n)
	}
	return n
}

// GetOrLoad returns the cached block for k or fetches it with Options.Loader.
// Only one load per key is in flight; concurrent callers share its result.
// Cancelling ctx releases the caller but not the load already running.
func (c *LRUBlockCache) GetOrLoad(ctx context.Context, k BlockCacheKey) (Cacheable, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if c.opt.Loader == nil {
		return nil, ErrNoLoader
	}

	ch := c.sf.DoChan(k.String(), func() (any, error) {
		// double-check after joining the flight
		if v, _, ok := c.Peek(k); ok {
			return v, nil
		}
		v, inMemory, err := c.opt.Loader(context.WithoutCancel(ctx), k)
		if err != nil {
			return nil, fmt.Errorf("load block %s: %w", k, err)
		}
		if err := c.Put(k, v, inMemory); err != nil {
			return nil, err
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(Cacheable), nil
	}
}

// SetMaxSize changes the byte budget and sweeps if the cache is now over it.
func (c *LRUBlockCache) SetMaxSize(n int64) error {
	if n <= 0 {
		return fmt.Errorf("%w: max size must be > 0, got %d", ErrInvalidConfig, n)
	}
	c.maxSize.Store(n)
	if c.occ.bytes.Load() > c.acceptableSize() {
		c.requestSweep()
	}
	return nil
}

// Len returns the number of cached blocks.
func (c *LRUBlockCache) Len() int { return int(c.occ.blocks.Load()) }

// Size returns the estimated bytes held by cached blocks.
func (c *LRUBlockCache) Size() int64 { return c.occ.bytes.Load() }

// Capacity returns the byte budget.
func (c *LRUBlockCache) Capacity() int64 { return c.maxSize.Load() }

// FreeSize returns the budget not in use (negative while over budget).
func (c *LRUBlockCache) FreeSize() int64 { return c.Capacity() - c.Size() }

// CacheStats returns the live counters.
func (c *LRUBlockCache) CacheStats() *CacheStats { return c.stats }

// Stats returns a point-in-time snapshot. It walks every shard to split
// occupancy by priority, so it is not meant for hot paths.
func (c *LRUBlockCache) Stats() Stats {
	st := Stats{
		Hits:             c.stats.HitCount(),
		Misses:           c.stats.MissCount(),
		Evicted:          c.stats.EvictedCount(),
		EvictedBytes:     c.stats.EvictedBytes(),
		Sweeps:           c.stats.SweepCount(),
		Readmissions:     c.ghosts.readmissions(),
		HitRatio:         c.stats.HitRatio(),
		HitRatioPastN:    c.stats.HitRatioPastN(),
		Blocks:           c.occ.blocks.Load(),
		Bytes:            c.occ.bytes.Load(),
		Capacity:         c.Capacity(),
		WorkloadAccesses: c.stats.WorkloadAccesses(),
	}
	for _, s := range c.shards {
		for _, cand := range s.snapshot(nil, nil) {
			st.PriorityBytes[cand.Priority] += cand.Size
		}
	}
	return st
}

// FileSummary describes the cached blocks of one storage file.
type FileSummary struct {
	FileID string
	Blocks int
	Bytes  int64
}

// FileSummaries lists every file with cached blocks, sorted by file ID.
func (c *LRUBlockCache) FileSummaries() []FileSummary {
	files := c.index.fileIDs()
	slices.Sort(files)

	out := make([]FileSummary, 0, len(files))
	for _, f := range files {
		fs := FileSummary{FileID: f}
		for _, k := range c.index.keys(f) {
			if b := c.getShard(k).get(k); b != nil {
				fs.Blocks++
				fs.Bytes += b.size
			}
		}
		if fs.Blocks > 0 {
			out = append(out, fs)
		}
	}
	return out
}

// FileBlockCount returns how many blocks of fileID are cached.
func (c *LRUBlockCache) FileBlockCount(fileID string) uint64 {
	return c.index.blockCount(fileID)
}

// Close stops the eviction and statistics goroutines and marks the cache
// closed. It is safe to call more than once.
func (c *LRUBlockCache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.wg.Wait()
	})
	return nil
}

// ---- helpers ----

// getShard picks a shard by hashing the key and masking with len-1.
func (c *LRUBlockCache) getShard(k BlockCacheKey) *shard {
	return c.shards[util.ShardIndex(k.Hash(), len(c.shards))]
}

func (c *LRUBlockCache) nextTick() int64 { return c.tick.Add(1) }

func (c *LRUBlockCache) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// minSize is what a triggered sweep frees down to.
func (c *LRUBlockCache) minSize() int64 {
	return int64(float64(c.maxSize.Load()) * c.opt.MinFactor)
}

// acceptableSize is the occupancy above which a sweep is triggered.
func (c *LRUBlockCache) acceptableSize() int64 {
	return int64(float64(c.maxSize.Load()) * c.opt.AcceptableFactor)
}

func (c *LRUBlockCache) reportSize() {
	c.opt.Metrics.Size(c.occ.blocks.Load(), c.occ.bytes.Load())
}

// notifyEvict records an entry that has already left the map.
func (c *LRUBlockCache) notifyEvict(b *CachedBlock, reason EvictReason) {
	c.stats.evict(b.size)
	c.opt.Metrics.Evict(reason, b.Priority(), b.size)
	if cb := c.opt.OnEvict; cb != nil {
		cb(b.key, b.buf, reason)
	}
}
