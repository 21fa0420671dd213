// Package lru implements a plain global-recency eviction policy.
package lru

import (
	"slices"

	"github.com/IvanBrykalov/blockcache/policy"
)

// lru ignores priorities and evicts the least recently accessed entries first.
// It is the baseline the tiered policy degrades to and is handy for
// comparing hit rates under scan-heavy workloads.
type lru[K policy.Key[K]] struct{}

// New returns a global LRU policy.
func New[K policy.Key[K]]() policy.Policy[K] { return lru[K]{} }

// Victims implements policy.Policy.
func (lru[K]) Victims(cands []policy.Candidate[K], occupancy, target int64) []policy.Candidate[K] {
	need := occupancy - target
	if need <= 0 || len(cands) == 0 {
		return nil
	}
	sorted := slices.Clone(cands)
	slices.SortFunc(sorted, policy.Oldest[K])

	var freed int64
	for i, c := range sorted {
		freed += c.Size
		if freed >= need {
			return sorted[:i+1]
		}
	}
	return sorted
}
