package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheStats_HitRatioPastN(t *testing.T) {
	t.Parallel()

	s := newCacheStats(2)
	require.Zero(t, s.HitRatioPastN())

	// period 1: 1/4
	s.hit()
	s.miss()
	s.miss()
	s.miss()
	s.rollPeriod()
	require.InDelta(t, 0.25, s.HitRatioPastN(), 1e-9)

	// period 2: 3/4, window is (1+3)/8
	s.hit()
	s.hit()
	s.hit()
	s.miss()
	s.rollPeriod()
	require.InDelta(t, 0.5, s.HitRatioPastN(), 1e-9)

	// period 3 pushes period 1 out: (3+0)/(4+2)
	s.miss()
	s.miss()
	s.rollPeriod()
	require.InDelta(t, 0.5, s.HitRatioPastN(), 1e-9)

	// period 4 pushes period 2 out: 0/(2+0)
	s.rollPeriod()
	require.Zero(t, s.HitRatioPastN())

	require.Equal(t, uint64(4), s.HitCount())
	require.Equal(t, uint64(6), s.MissCount())
	require.InDelta(t, 0.4, s.HitRatio(), 1e-9)
}

func TestCacheStats_Workloads(t *testing.T) {
	t.Parallel()

	s := newCacheStats(1)
	s.access(1)
	s.access(1)
	s.access(2)
	require.Equal(t, map[WorkloadID]uint64{1: 2, 2: 1}, s.WorkloadAccesses())
}

func TestFileIndex(t *testing.T) {
	t.Parallel()

	x := newFileIndex()
	x.add(NewBlockCacheKey("a", 0, true))
	x.add(NewBlockCacheKey("a", 4096, true))
	x.add(NewBlockCacheKey("a", 0, false))
	x.add(NewBlockCacheKey("b", 8, true))

	require.Equal(t, uint64(3), x.blockCount("a"))
	require.ElementsMatch(t, []BlockCacheKey{
		NewBlockCacheKey("a", 0, true),
		NewBlockCacheKey("a", 4096, true),
		NewBlockCacheKey("a", 0, false),
	}, x.keys("a"))
	require.ElementsMatch(t, []string{"a", "b"}, x.fileIDs())

	x.remove(NewBlockCacheKey("b", 8, true))
	x.remove(NewBlockCacheKey("b", 8, true))
	require.Zero(t, x.blockCount("b"))
	require.Equal(t, []string{"a"}, x.fileIDs())
	require.Empty(t, x.keys("b"))
}

func TestGhostList(t *testing.T) {
	t.Parallel()

	var nilList *ghostList
	nilList.evicted(key(1))
	nilList.admitted(key(1))
	require.Zero(t, nilList.readmissions())

	g, err := newGhostList(2)
	require.NoError(t, err)
	g.evicted(key(1))
	g.evicted(key(2))
	g.evicted(key(3)) // pushes key(1) out

	g.admitted(key(1))
	g.admitted(key(3))
	g.admitted(key(3))
	require.Equal(t, uint64(1), g.readmissions())
}
