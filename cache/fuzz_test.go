package cache

import (
	"strings"
	"testing"
)

// Fuzz Put/Get/Evict semantics under arbitrary block addresses and sizes.
// Guards against panics and ensures the occupancy invariant holds.
// NOTE: file IDs and sizes are capped to keep memory bounded during fuzzing.
func FuzzCache_PutGetEvict(f *testing.F) {
	f.Add("", int64(0), true, int64(0))
	f.Add("a", int64(1), false, int64(1))
	f.Add("αβγ", int64(-1), true, int64(4096))
	f.Add("emoji🙂", int64(1<<40), false, int64(65536))
	f.Add(strings.Repeat("x", 1024), int64(7), true, int64(-5))

	f.Fuzz(func(t *testing.T, file string, off int64, primary bool, size int64) {
		const limit = 1 << 12
		if len(file) > limit {
			file = file[:limit]
		}
		size %= 1 << 20

		c, err := New(Options{Config: Config{MaxSizeBytes: 1 << 20, Shards: 4}})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = c.Close() })

		k := NewBlockCacheKey(file, off, primary)
		err = c.Put(k, blob{size: size}, false)
		if size < 0 {
			if err == nil {
				t.Fatalf("negative size %d accepted", size)
			}
			return
		}
		if err != nil {
			t.Fatalf("Put: %v", err)
		}

		want := EstimateSize(k, blob{size: size}, DefaultPerBlockOverhead)
		if want <= c.Capacity() {
			if got, ok := c.Get(k); !ok || got.HeapSize() != size {
				t.Fatalf("after Put/Get: ok=%v got=%v", ok, got)
			}
			if c.Size() != want {
				t.Fatalf("size %d, want %d", c.Size(), want)
			}
		}

		// The other layout is a different block.
		if _, _, ok := c.Peek(NewBlockCacheKey(file, off, !primary)); ok {
			t.Fatalf("layout flag ignored for %s", k)
		}

		c.Evict(k)
		if c.Size() != 0 || c.Len() != 0 {
			t.Fatalf("after Evict: size=%d len=%d", c.Size(), c.Len())
		}
	})
}
