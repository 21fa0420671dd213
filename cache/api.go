package cache

import "context"

// BlockCache is the read path's view of the block cache.
// All methods are safe for concurrent use by multiple goroutines.
//
// Get, Put and Evict are O(1) expected: a hash, a shard lock and a map
// operation. Sweeps are O(n log n) in the number of resident blocks and only
// hold one shard lock at a time.
type BlockCache interface {
	// Get returns the cached payload for k. On hit the entry's access time is
	// refreshed and a Single entry is promoted to Multi. Get never blocks on a
	// concurrent load of the same key.
	Get(k BlockCacheKey) (Cacheable, bool)

	// GetAs is Get on behalf of workload w; the entry is retagged with w.
	GetAs(w WorkloadID, k BlockCacheKey) (Cacheable, bool)

	// Put caches v under k, replacing any existing entry. inMemory blocks are
	// retained in the InMemory bucket. Blocks larger than the whole cache are
	// still admitted and become the first sweep victims.
	// It fails only for a nil payload, an invalid size or a closed cache.
	Put(k BlockCacheKey, v Cacheable, inMemory bool) error

	// PutAs is Put on behalf of workload w.
	PutAs(w WorkloadID, k BlockCacheKey, v Cacheable, inMemory bool) error

	// Evict removes k if present and reports whether it did.
	Evict(k BlockCacheKey) bool

	// EvictByFile removes every block of fileID (both layouts) and returns
	// how many were removed.
	EvictByFile(fileID string) int

	// Sweep evicts until occupancy is at or below targetBytes, or nothing is
	// left, and returns the bytes freed.
	Sweep(targetBytes int64) int64

	// GetOrLoad returns the cached block or loads it with Options.Loader.
	// Concurrent loads of the same key are coalesced.
	GetOrLoad(ctx context.Context, k BlockCacheKey) (Cacheable, error)

	// Len returns the number of cached blocks.
	Len() int

	// Size returns the estimated bytes held by cached blocks.
	Size() int64

	// Stats returns a point-in-time statistics snapshot.
	Stats() Stats

	// Close stops background goroutines. Further Puts fail with ErrClosed.
	Close() error
}
