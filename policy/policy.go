package policy

import "cmp"

// Priority is the retention tier of a cached block.
// The numeric order is also the order in which sweeps drain the tiers.
type Priority uint8

const (
	// Single is accessed once since admission (typical of a sequential scan).
	Single Priority = iota
	// Multi is accessed again after admission.
	Multi
	// InMemory is admitted for an in-memory column family; evicted last.
	InMemory
)

// NumPriorities is the number of retention tiers.
const NumPriorities = 3

func (p Priority) String() string {
	switch p {
	case Single:
		return "single"
	case Multi:
		return "multi"
	case InMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Key is the contract a cache key must satisfy to be planned by a policy.
// Compare gives a total order used only to break access-time ties so that
// sweeps are deterministic.
type Key[K any] interface {
	comparable
	Compare(K) int
}

// Candidate is one resident entry as seen by a sweep snapshot.
type Candidate[K any] struct {
	Key        K
	Priority   Priority
	AccessTime int64
	Size       int64
}

// Policy chooses eviction victims from a snapshot of resident entries.
//
// Semantics:
//   - occupancy is the cache's byte total when the snapshot was taken and
//     target is the byte total the sweep must reach.
//   - Victims returns candidates in eviction order. Their sizes add up to at
//     least occupancy-target, or the result holds every candidate when that
//     is not possible.
//   - A nil result means nothing needs to go.
//
// Implementations must not retain cands; the caller may reuse it.
type Policy[K Key[K]] interface {
	Victims(cands []Candidate[K], occupancy, target int64) []Candidate[K]
}

// Oldest orders candidates least recently accessed first,
// breaking ties by key.
func Oldest[K Key[K]](a, b Candidate[K]) int {
	if c := cmp.Compare(a.AccessTime, b.AccessTime); c != 0 {
		return c
	}
	return a.Key.Compare(b.Key)
}
