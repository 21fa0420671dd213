package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ghostList remembers keys recently evicted by sweeps. A key that is cached
// again while still remembered counts as a re-admission: the cache threw the
// block away and the read path had to decode it again. A rising count means
// some workload is polluting the cache.
//
// A nil *ghostList is valid and records nothing.
type ghostList struct {
	keys     *lru.Cache[BlockCacheKey, struct{}]
	readmits atomic.Uint64
}

func newGhostList(capacity int) (*ghostList, error) {
	if capacity <= 0 {
		return nil, nil
	}
	keys, err := lru.New[BlockCacheKey, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &ghostList{keys: keys}, nil
}

func (g *ghostList) evicted(k BlockCacheKey) {
	if g == nil {
		return
	}
	g.keys.Add(k, struct{}{})
}

func (g *ghostList) admitted(k BlockCacheKey) {
	if g == nil {
		return
	}
	if g.keys.Remove(k) {
		g.readmits.Add(1)
	}
}

func (g *ghostList) readmissions() uint64 {
	if g == nil {
		return 0
	}
	return g.readmits.Load()
}
