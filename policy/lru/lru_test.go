package lru

import (
	"cmp"
	"testing"

	"github.com/IvanBrykalov/blockcache/policy"
)

// --- test doubles ---

type testKey string

func (k testKey) Compare(o testKey) int { return cmp.Compare(k, o) }

// --- tests ---

// Priorities are ignored: the oldest entry goes first.
func TestLRU_IgnoresPriority(t *testing.T) {
	t.Parallel()

	p := New[testKey]()
	cands := []policy.Candidate[testKey]{
		{Key: "single", Priority: policy.Single, AccessTime: 3, Size: 10},
		{Key: "memory", Priority: policy.InMemory, AccessTime: 1, Size: 10},
		{Key: "multi", Priority: policy.Multi, AccessTime: 2, Size: 10},
	}

	v := p.Victims(cands, 30, 15)
	if len(v) != 2 || v[0].Key != "memory" || v[1].Key != "multi" {
		t.Fatalf("want [memory multi], got %v", v)
	}
}

// Victims must not reorder the caller's slice.
func TestLRU_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	p := New[testKey]()
	cands := []policy.Candidate[testKey]{
		{Key: "b", AccessTime: 2, Size: 1},
		{Key: "a", AccessTime: 1, Size: 1},
	}
	_ = p.Victims(cands, 2, 0)

	if cands[0].Key != "b" || cands[1].Key != "a" {
		t.Fatalf("input reordered: %v", cands)
	}
}

// Under target: nothing to do.
func TestLRU_NoPressure(t *testing.T) {
	t.Parallel()

	p := New[testKey]()
	cands := []policy.Candidate[testKey]{{Key: "a", AccessTime: 1, Size: 1}}
	if v := p.Victims(cands, 1, 1); v != nil {
		t.Fatalf("want nil, got %v", v)
	}
}
