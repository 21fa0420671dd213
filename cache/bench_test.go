package cache

import (
	"math/rand"
	"sync/atomic"
	"testing"
)

// benchmarkMix exercises a read/write mix against a warm cache.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
// The keyspace is twice what fits, so writes keep the sweeper busy.
func benchmarkMix(b *testing.B, readsPct int, evictionThread bool) {
	const resident = 50_000
	c, err := New(Options{Config: Config{
		MaxSizeBytes:   resident * entrySize,
		EvictionThread: evictionThread,
	}})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = c.Close() })

	// Preload half the capacity to get a realistic hit-rate.
	for i := 0; i < resident/2; i++ {
		_ = c.Put(key(int64(i)), payload(i), false)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 17) - 1 // power of two for fast &-mask

	b.RunParallel(func(pb *testing.PB) {
		// Independent RNG stream for each worker.
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		for pb.Next() {
			k := key(int64(r.Int() & keyMask))
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				_ = c.Put(k, payload(0), false)
			}
		}
	})
}

func BenchmarkCache_90r10w(b *testing.B) { benchmarkMix(b, 90, false) }
func BenchmarkCache_50r50w(b *testing.B) { benchmarkMix(b, 50, false) }
func BenchmarkCache_90r10w_EvictionThread(b *testing.B) { benchmarkMix(b, 90, true) }

// BenchmarkCache_GetHit measures the read path alone: shard read lock plus
// the atomic access-time update.
func BenchmarkCache_GetHit(b *testing.B) {
	c, err := New(Options{})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = c.Close() })
	for i := 0; i < 1024; i++ {
		_ = c.Put(key(int64(i)), payload(i), false)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Get(key(int64(i & 1023)))
			i++
		}
	})
}

// BenchmarkSweep measures one full sweep of a 100k-block cache down to half.
func BenchmarkSweep(b *testing.B) {
	const n = 100_000
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		c, err := New(Options{Config: Config{MaxSizeBytes: 2 * n * entrySize}})
		if err != nil {
			b.Fatal(err)
		}
		for j := 0; j < n; j++ {
			_ = c.Put(key(int64(j)), payload(j), j%3 == 0)
		}
		b.StartTimer()
		c.Sweep(n / 2 * entrySize)
		b.StopTimer()
		_ = c.Close()
	}
}
