package cache

import (
	"sync"

	"github.com/IvanBrykalov/blockcache/internal/util"
	"github.com/IvanBrykalov/blockcache/policy"
)

// occupancy is the cache-wide byte and block total. It is only changed while
// the shard lock of the mutated entry is held, in the same critical section as
// the map mutation, so it never drifts from the sum of live entry sizes.
type occupancy struct {
	bytes  util.PaddedAtomicInt64
	blocks util.PaddedAtomicInt64
}

func (o *occupancy) add(b *CachedBlock) {
	o.bytes.Add(b.size)
	o.blocks.Add(1)
}

func (o *occupancy) sub(b *CachedBlock) {
	o.bytes.Add(-b.size)
	o.blocks.Add(-1)
}

// shard is an independent partition of the key->entry map with its own lock.
// Reads take the read lock only; per-entry recency is updated with atomics
// outside any lock.
type shard struct {
	// ---- guarded by mu ----
	mu    sync.RWMutex
	m     map[BlockCacheKey]*CachedBlock
	bytes int64 // sum of entry sizes in this shard

	occ   *occupancy
	index *fileIndex

	_ util.CacheLinePad
}

func newShard(occ *occupancy, index *fileIndex) *shard {
	return &shard{
		m:     make(map[BlockCacheKey]*CachedBlock),
		occ:   occ,
		index: index,
	}
}

// get returns the entry for k or nil.
func (s *shard) get(k BlockCacheKey) *CachedBlock {
	s.mu.RLock()
	b := s.m[k]
	s.mu.RUnlock()
	return b
}

// put installs b and returns the entry it replaced (nil if k was absent).
// The replaced entry's frozen size is subtracted before b's is added.
func (s *shard) put(b *CachedBlock) (old *CachedBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old = s.m[b.key]
	if old != nil {
		s.bytes -= old.size
		s.occ.sub(old)
	} else {
		s.index.add(b.key)
	}
	s.m[b.key] = b
	s.bytes += b.size
	s.occ.add(b)
	return old
}

// remove deletes k and returns the removed entry (nil if absent).
func (s *shard) remove(k BlockCacheKey) *CachedBlock {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.m[k]
	if b == nil {
		return nil
	}
	s.unlinkLocked(b)
	return b
}

// removeIfSame deletes b only if it is still the live entry for its key.
// A victim chosen from a stale snapshot that was replaced or already removed
// is left alone.
func (s *shard) removeIfSame(b *CachedBlock) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m[b.key] != b {
		return false
	}
	s.unlinkLocked(b)
	return true
}

func (s *shard) unlinkLocked(b *CachedBlock) {
	delete(s.m, b.key)
	s.bytes -= b.size
	s.occ.sub(b)
	s.index.remove(b.key)
}

// snapshot appends a candidate per entry to dst and records the entry behind
// each key in refs.
func (s *shard) snapshot(dst []policy.Candidate[BlockCacheKey], refs map[BlockCacheKey]*CachedBlock) []policy.Candidate[BlockCacheKey] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, b := range s.m {
		dst = append(dst, b.candidate())
		if refs != nil {
			refs[k] = b
		}
	}
	return dst
}

// sizes returns the shard's block count and byte total.
func (s *shard) sizes() (blocks int, bytes int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m), s.bytes
}
