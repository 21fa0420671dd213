package cache

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// N goroutines Put N distinct equally sized blocks. No occupancy update may
// be lost.
func TestRace_ConcurrentPutAccounting(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Config{Shards: 16})

	const goroutines = 256
	start := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			<-start
			return c.Put(key(int64(i)), payload(i), false)
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	require.Equal(t, goroutines*entrySize, c.Size())
	require.Equal(t, goroutines, c.Len())
	requireAccounting(t, c)
}

// A mixed workload of concurrent Put/Get/Evict/EvictByFile on random keys
// under constant sweep pressure. Should pass under `-race` without detector
// reports, and the accounting must add up once it is quiet.
func TestRace_Mixed(t *testing.T) {
	c := newTestCache(t, Config{
		MaxSizeBytes:  512 * entrySize,
		Shards:        32,
		GhostCapacity: 1024,
	})

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 4096
	deadline := time.Now().Add(time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := key(int64(r.Intn(keyspace)))
				switch r.Intn(100) {
				case 0, 1, 2: // ~3%: Evict
					c.Evict(k)
				case 3: // ~1%: drop a whole file
					c.EvictByFile("f")
				case 4, 5, 6, 7, 8: // ~5%: in-memory Put
					_ = c.PutAs(WorkloadID(id), k, payload(id), true)
				case 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19: // ~11%: Put
					_ = c.PutAs(WorkloadID(id), k, payload(id), false)
				default: // ~80%: Get
					c.GetAs(WorkloadID(id), k)
				}
			}
		}(w)
	}
	wg.Wait()

	requireAccounting(t, c)
}

// The eviction goroutine sweeps while writers keep inserting.
func TestRace_EvictionThread(t *testing.T) {
	c := newTestCache(t, Config{
		MaxSizeBytes:   256 * entrySize,
		Shards:         8,
		EvictionThread: true,
	})

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 2_000; i++ {
				if err := c.Put(key(int64(w*10_000+i)), payload(i), false); err != nil {
					return err
				}
				c.Get(key(int64(w*10_000 + i/2)))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Eventually(t, func() bool {
		return c.Size() <= c.Capacity()
	}, 2*time.Second, time.Millisecond)
	requireAccounting(t, c)
}

// One hundred goroutines call GetOrLoad on the same key concurrently.
// The Loader should run at most once (singleflight coalescing).
func TestRace_GetOrLoad(t *testing.T) {
	var calls atomic.Int64

	c := newTestCache(t, Config{}, func(o *Options) {
		o.Loader = func(_ context.Context, k BlockCacheKey) (Cacheable, bool, error) {
			calls.Add(1)
			time.Sleep(2 * time.Millisecond) // simulate I/O
			return payload(int(k.Offset)), true, nil
		}
	})

	const goroutines = 100
	k := key(7)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrLoad(context.Background(), k)
			if err != nil {
				t.Errorf("GetOrLoad error: %v", err)
				return
			}
			if v != payload(7) {
				t.Errorf("unexpected value: %v", v)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := calls.Load(); got > 1 {
		t.Fatalf("loader should run at most once, got %d", got)
	}

	// Loaded as in-memory; a later call is a pure cache hit.
	_, p, ok := c.Peek(k)
	require.True(t, ok)
	require.Equal(t, PriorityInMemory, p)
	if v, err := c.GetOrLoad(context.Background(), k); err != nil || v != payload(7) {
		t.Fatalf("second GetOrLoad failed: v=%v err=%v", v, err)
	}
}
