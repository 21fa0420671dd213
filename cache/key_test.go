package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockCacheKey_Equality(t *testing.T) {
	t.Parallel()

	a := NewBlockCacheKey("f1", 4096, true)
	b := NewBlockCacheKey("f1", 4096, true)
	require.Equal(t, a, b)
	require.Equal(t, a.Hash(), b.Hash())

	// Every field participates in equality and in the hash.
	for _, o := range []BlockCacheKey{
		NewBlockCacheKey("f2", 4096, true),
		NewBlockCacheKey("f1", 8192, true),
		NewBlockCacheKey("f1", 4096, false),
	} {
		require.NotEqual(t, a, o)
		require.NotEqual(t, a.Hash(), o.Hash(), "hash collision for %s", o)
	}

	m := map[BlockCacheKey]int{a: 1}
	m[b]++
	require.Len(t, m, 1)
	require.Equal(t, 2, m[a])
}

func TestBlockCacheKey_HeapSize(t *testing.T) {
	t.Parallel()

	short := NewBlockCacheKey("a", 0, true)
	long := NewBlockCacheKey("abcdefghijklmnopq", 0, true)

	require.Zero(t, short.HeapSize()%8, "must be word aligned")
	require.GreaterOrEqual(t, short.HeapSize(), keyBaseSize+1)
	require.Equal(t, long.HeapSize()-short.HeapSize(), int64(16))
}

func TestBlockCacheKey_Compare(t *testing.T) {
	t.Parallel()

	a := NewBlockCacheKey("a", 10, true)
	require.Zero(t, a.Compare(a))
	require.Negative(t, a.Compare(NewBlockCacheKey("b", 0, true)))
	require.Negative(t, a.Compare(NewBlockCacheKey("a", 11, true)))
	require.Positive(t, a.Compare(NewBlockCacheKey("a", 10, false)), "legacy sorts first")
}

func TestBlockCacheKey_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "f_42", NewBlockCacheKey("f", 42, true).String())
	require.Equal(t, "f_42_legacy", NewBlockCacheKey("f", 42, false).String())
}
