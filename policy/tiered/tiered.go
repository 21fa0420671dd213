// Package tiered implements the priority-bucket eviction policy used by the
// block cache by default.
package tiered

import (
	"slices"

	"github.com/IvanBrykalov/blockcache/policy"
)

// relaxRounds is how many times bucket quotas are halved before the policy
// falls back to plain global recency.
const relaxRounds = 4

// tiered splits candidates into Single/Multi/InMemory buckets and drains them
// in that order, oldest first, down to a per-bucket share of the target.
//
// Round r uses quota_b = factor_b * target / 2^r. When all rounds are spent
// and the target is still not met, the remaining entries are evicted in
// global access-time order.
type tiered[K policy.Key[K]] struct {
	factors [policy.NumPriorities]float64
}

type bucket[K any] struct {
	items []policy.Candidate[K]
	next  int   // first not-yet-chosen item
	bytes int64 // bytes still resident (not chosen)
}

// New returns a tiered policy. The factors are the retention shares of the
// Single, Multi and InMemory buckets; they are expected to sum to 1.
// Negative factors are treated as zero.
func New[K policy.Key[K]](single, multi, memory float64) policy.Policy[K] {
	t := &tiered[K]{}
	for i, f := range [...]float64{single, multi, memory} {
		t.factors[i] = max(f, 0)
	}
	return t
}

// Victims implements policy.Policy.
func (t *tiered[K]) Victims(cands []policy.Candidate[K], occupancy, target int64) []policy.Candidate[K] {
	need := occupancy - target
	if need <= 0 || len(cands) == 0 {
		return nil
	}
	target = max(target, 0)

	var buckets [policy.NumPriorities]bucket[K]
	for _, c := range cands {
		p := c.Priority
		if int(p) >= policy.NumPriorities {
			p = policy.Single
		}
		b := &buckets[p]
		b.items = append(b.items, c)
		b.bytes += c.Size
	}
	for i := range buckets {
		slices.SortFunc(buckets[i].items, policy.Oldest[K])
	}

	var (
		victims []policy.Candidate[K]
		freed   int64
	)
	for round := 0; round < relaxRounds && freed < need; round++ {
		for p := range buckets {
			quota := int64(t.factors[p]*float64(target)) >> round
			b := &buckets[p]
			for b.next < len(b.items) && b.bytes > quota && freed < need {
				c := b.items[b.next]
				b.next++
				b.bytes -= c.Size
				freed += c.Size
				victims = append(victims, c)
			}
		}
	}
	if freed >= need {
		return victims
	}

	// Quotas exhausted: global LRU over whatever is left.
	var rest []policy.Candidate[K]
	for i := range buckets {
		rest = append(rest, buckets[i].items[buckets[i].next:]...)
	}
	slices.SortFunc(rest, policy.Oldest[K])
	for _, c := range rest {
		if freed >= need {
			break
		}
		freed += c.Size
		victims = append(victims, c)
	}
	return victims
}
