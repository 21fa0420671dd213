// Package cache implements an in-process block cache for a columnar storage
// read path: decoded blocks addressed by (file, offset, layout) are kept under
// a byte budget and evicted by priority tier and recency.
//
// Design
//
//   - Concurrency: the key->entry map is split into shards, each protected by
//     an RWMutex. The default shard count is nextPow2(2*GOMAXPROCS), capped at
//     256. Get takes only the shard read lock; recency and priority live in a
//     single atomic word on the entry.
//
//   - Accounting: every entry's size estimate (key + payload + a fixed
//     per-block overhead) is frozen at construction. The cache-wide occupancy
//     is updated inside the same shard critical section as the map mutation,
//     so it always equals the sum of live entry sizes.
//
//   - Priorities: a block enters as Single (or InMemory when the caller marks
//     it so), is promoted to Multi on its first hit and never demoted.
//
//   - Eviction: when occupancy exceeds AcceptableFactor*MaxSizeBytes a sweep
//     frees down to MinFactor*MaxSizeBytes. The default policy (policy/tiered)
//     drains Single, then Multi, then InMemory, oldest first, each only down
//     to its share of the target. A long scan of one-off reads therefore
//     cycles through the Single bucket without flushing reused blocks.
//     Sweeps run inline in the Put that crossed the threshold, or on a
//     dedicated goroutine when Config.EvictionThread is set.
//
//   - Files: a roaring bitmap per file tracks cached offsets, so EvictByFile
//     and FileSummaries touch only that file's blocks.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Sweep/Size signals.
//     By default NoopMetrics is used; see metrics/prom for Prometheus.
//
// Basic usage
//
//	c, err := cache.New(cache.Options{Config: cache.Config{MaxSizeBytes: 64 << 20}})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	k := cache.NewBlockCacheKey("000123.sst", 4096, true)
//	if err := c.Put(k, cache.Bytes(block), false); err != nil {
//	    return err
//	}
//	if v, ok := c.Get(k); ok {
//	    _ = v.(cache.Bytes)
//	}
//
// With GetOrLoad
//
//	c, _ := cache.New(cache.Options{
//	    Loader: func(ctx context.Context, k cache.BlockCacheKey) (cache.Cacheable, bool, error) {
//	        b, err := readBlock(ctx, k.FileID, k.Offset)
//	        return cache.Bytes(b), false, err
//	    },
//	})
//	v, err := c.GetOrLoad(ctx, k)
//
// Configuration from YAML
//
//	cfg, err := cache.LoadConfig(f) // unknown fields are rejected
//	c, err := cache.New(cache.Options{Config: cfg, Logger: logger})
package cache
