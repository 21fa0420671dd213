package cache

import (
	"sync/atomic"
	"unsafe"

	"github.com/IvanBrykalov/blockcache/internal/util"
	"github.com/IvanBrykalov/blockcache/policy"
)

// BlockPriority is the retention tier of a cached block.
type BlockPriority = policy.Priority

// Block priorities, re-exported from the policy package.
const (
	PrioritySingle   = policy.Single
	PriorityMulti    = policy.Multi
	PriorityInMemory = policy.InMemory
)

// WorkloadID tags the logical consumer that placed or last used a block.
type WorkloadID int32

// DefaultWorkload is used by Get and Put.
const DefaultWorkload WorkloadID = 0

// mapSlotOverhead approximates one map slot (tophash, key, pointer) plus the
// per-entry share of bucket overflow.
const mapSlotOverhead = 64

// DefaultPerBlockOverhead is the fixed per-entry cost added to every size
// estimate: the entry struct itself plus its map slot.
const DefaultPerBlockOverhead = (int64(unsafe.Sizeof(CachedBlock{})) + mapSlotOverhead + util.WordSize - 1) &^ (util.WordSize - 1)

// blockState is an immutable (access time, priority) pair. An entry swaps
// whole pairs, so a reader never sees a new time with a stale priority or
// vice versa.
type blockState struct {
	accessTime int64
	priority   BlockPriority
}

// EstimateSize is the heap estimate frozen into an entry: the aligned key
// size, the aligned payload size and a fixed overhead. It is a pure function.
func EstimateSize(key BlockCacheKey, buf Cacheable, overhead int64) int64 {
	return util.Align(key.HeapSize()) + util.Align(buf.HeapSize()) + overhead
}

// CachedBlock is a cache entry. The cache owns it; callers only ever see the
// payload.
//
// Ordering and equality are defined by access time alone (most recent first).
// Two entries for different blocks that were accessed at the same instant
// compare equal. Sweeps rely on that relation being consistent, so it must not
// be changed to compare keys.
//
// Access time, priority, access count and workload are updated with atomics.
// Concurrent accesses to the same entry race benignly: the last writer's time
// wins, which only affects eviction order.
type CachedBlock struct {
	key  BlockCacheKey
	buf  Cacheable
	size int64 // frozen at construction

	state    atomic.Pointer[blockState]
	accesses atomic.Uint64
	workload atomic.Int32
}

// NewCachedBlock builds an entry sized with DefaultPerBlockOverhead.
// inMemory blocks start (and stay) at PriorityInMemory, others at
// PrioritySingle.
func NewCachedBlock(key BlockCacheKey, buf Cacheable, accessTime int64, inMemory bool) *CachedBlock {
	return newCachedBlock(key, buf, accessTime, inMemory, DefaultPerBlockOverhead)
}

func newCachedBlock(key BlockCacheKey, buf Cacheable, accessTime int64, inMemory bool, overhead int64) *CachedBlock {
	b := &CachedBlock{
		key:  key,
		buf:  buf,
		size: EstimateSize(key, buf, overhead),
	}
	p := PrioritySingle
	if inMemory {
		p = PriorityInMemory
	}
	b.state.Store(&blockState{accessTime: accessTime, priority: p})
	return b
}

// RecordAccess refreshes the access time and promotes Single to Multi.
// Multi and InMemory entries keep their priority. It returns the priority the
// entry had before the access.
func (b *CachedBlock) RecordAccess(accessTime int64, w WorkloadID) BlockPriority {
	for {
		old := b.state.Load()
		p := old.priority
		if p == PrioritySingle {
			p = PriorityMulti
		}
		if b.state.CompareAndSwap(old, &blockState{accessTime: accessTime, priority: p}) {
			b.workload.Store(int32(w))
			return old.priority
		}
	}
}

// IncrementAccessCount bumps the access counter.
func (b *CachedBlock) IncrementAccessCount() { b.accesses.Add(1) }

// AccessCount returns the number of recorded accesses.
func (b *CachedBlock) AccessCount() uint64 { return b.accesses.Load() }

// HeapSize returns the size frozen at construction.
func (b *CachedBlock) HeapSize() int64 { return b.size }

// AccessTime returns the last access time.
func (b *CachedBlock) AccessTime() int64 {
	return b.state.Load().accessTime
}

// Priority returns the current retention tier.
func (b *CachedBlock) Priority() BlockPriority {
	return b.state.Load().priority
}

// Workload returns the tag of the workload that last placed or used the block.
func (b *CachedBlock) Workload() WorkloadID { return WorkloadID(b.workload.Load()) }

// SetWorkload retags the block.
func (b *CachedBlock) SetWorkload(w WorkloadID) { b.workload.Store(int32(w)) }

// Key returns the block's address.
func (b *CachedBlock) Key() BlockCacheKey { return b.key }

// Payload returns the cached block. It must be treated as read-only.
func (b *CachedBlock) Payload() Cacheable { return b.buf }

// CompareTo orders by access time, descending: a more recently accessed
// entry sorts first. Equal access times compare as 0.
func (b *CachedBlock) CompareTo(o *CachedBlock) int {
	bt, ot := b.AccessTime(), o.AccessTime()
	switch {
	case bt == ot:
		return 0
	case bt < ot:
		return 1
	default:
		return -1
	}
}

// Equal reports whether both entries have the same access time.
func (b *CachedBlock) Equal(o *CachedBlock) bool {
	if b == o {
		return true
	}
	if b == nil || o == nil {
		return false
	}
	return b.CompareTo(o) == 0
}

// candidate captures the entry for a sweep snapshot.
func (b *CachedBlock) candidate() policy.Candidate[BlockCacheKey] {
	st := b.state.Load()
	return policy.Candidate[BlockCacheKey]{Key: b.key, Priority: st.priority, AccessTime: st.accessTime, Size: b.size}
}
