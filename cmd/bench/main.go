// Command bench runs a synthetic storage read workload against the block cache
// and exposes optional pprof/Prometheus endpoints.
//
// Readers fetch Zipf-distributed blocks through GetOrLoad; scanners stream
// one-off blocks through the cache the way a full-table scan does. Comparing
// -policy=tiered with -policy=lru shows how much of the hot set survives the
// scans.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/blockcache/cache"
	pmet "github.com/IvanBrykalov/blockcache/metrics/prom"
	"github.com/IvanBrykalov/blockcache/policy/lru"
)

const (
	readWorkload cache.WorkloadID = 1
	scanWorkload cache.WorkloadID = 2
)

func main() {
	// ---- Flags ----
	var cfg cache.Config
	cfg.RegisterFlagsAndApplyDefaults("cache.", flag.CommandLine)
	var (
		configFile = flag.String("config", "", "YAML cache config; replaces the -cache.* flags")
		policy     = flag.String("policy", "tiered", "eviction policy: tiered | lru")

		readers  = flag.Int("readers", 2*runtime.GOMAXPROCS(0), "number of reader goroutines")
		scanners = flag.Int("scanners", 1, "number of scanner goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		files     = flag.Int("files", 64, "number of storage files")
		blocks    = flag.Int("blocks", 4096, "blocks per file")
		blockSize = flag.Int("block-size", 64<<10, "block payload size in bytes")
		zipfS     = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV     = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if *configFile != "" {
		f, err := os.Open(*configFile)
		if err != nil {
			level.Error(logger).Log("msg", "open config", "err", err)
			os.Exit(1)
		}
		cfg, err = cache.LoadConfig(f)
		_ = f.Close()
		if err != nil {
			level.Error(logger).Log("msg", "load config", "file", *configFile, "err", err)
			os.Exit(1)
		}
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			level.Info(logger).Log("msg", "serving pprof", "addr", *pprofAddr)
			level.Error(logger).Log("msg", "pprof server stopped", "err", http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Build cache ----
	reg := prometheus.NewRegistry()
	opt := cache.Options{
		Config:  cfg,
		Metrics: pmet.New(reg, "blockcache", "bench", nil),
		Logger:  logger,
		Loader:  syntheticLoader(*blockSize),
	}
	switch *policy {
	case "tiered":
		// nil => tiered by default
	case "lru":
		opt.Policy = lru.New[cache.BlockCacheKey]()
	default:
		level.Error(logger).Log("msg", "unknown policy (use tiered or lru)", "policy", *policy)
		os.Exit(1)
	}
	c, err := cache.New(opt)
	if err != nil {
		level.Error(logger).Log("msg", "build cache", "err", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()
	reg.MustRegister(pmet.NewCollector(c, "blockcache", "bench", nil))

	// ---- Prometheus metrics ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		level.Info(logger).Log("msg", "serving metrics", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			level.Error(logger).Log("msg", "metrics server stopped", "err", err)
		}
	}()

	// ---- Load generation ----
	var reads, scanned atomic.Uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	keyspace := uint64(*files) * uint64(*blocks)
	blockKey := func(i uint64) cache.BlockCacheKey {
		file := fmt.Sprintf("%06d.sst", i/uint64(*blocks))
		return cache.NewBlockCacheKey(file, int64(i%uint64(*blocks))*int64(*blockSize), true)
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < *readers; w++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(*seed + int64(w)*9973))
			zipf := rand.NewZipf(r, *zipfS, *zipfV, keyspace-1)
			for ctx.Err() == nil {
				k := blockKey(zipf.Uint64())
				if _, ok := c.GetAs(readWorkload, k); !ok {
					if _, err := c.GetOrLoad(ctx, k); err != nil && ctx.Err() == nil {
						return err
					}
				}
				reads.Add(1)
			}
			return nil
		})
	}
	for s := 0; s < *scanners; s++ {
		g.Go(func() error {
			// Scans read blocks nobody else asks for: a separate file range.
			next := keyspace + uint64(s)<<32
			for ctx.Err() == nil {
				k := blockKey(next)
				if _, ok := c.GetAs(scanWorkload, k); !ok {
					if err := c.PutAs(scanWorkload, k, make(cache.Bytes, *blockSize), false); err != nil {
						return err
					}
				}
				next++
				scanned.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		level.Error(logger).Log("msg", "workload failed", "err", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	// ---- Report ----
	st := c.Stats()
	fmt.Printf("policy=%s max=%d shards=%d readers=%d scanners=%d files=%d blocks=%d dur=%v seed=%d\n",
		*policy, st.Capacity, cfg.Shards, *readers, *scanners, *files, *blocks, elapsed, *seed)
	fmt.Printf("reads=%d (%.0f/s)  scanned=%d\n",
		reads.Load(), float64(reads.Load())/elapsed.Seconds(), scanned.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  evicted=%d  sweeps=%d  readmissions=%d\n",
		st.Hits, st.Misses, st.HitRatio*100, st.Evicted, st.Sweeps, st.Readmissions)
	fmt.Printf("blocks=%d bytes=%d  single=%d multi=%d memory=%d\n",
		st.Blocks, st.Bytes,
		st.PriorityBytes[cache.PrioritySingle], st.PriorityBytes[cache.PriorityMulti], st.PriorityBytes[cache.PriorityInMemory])
	for w, n := range st.WorkloadAccesses {
		fmt.Printf("workload %d: %d requests\n", w, n)
	}
}

// syntheticLoader pretends to read and decode a block. Every sixteenth file
// belongs to an in-memory column family.
func syntheticLoader(size int) cache.Loader {
	return func(_ context.Context, k cache.BlockCacheKey) (cache.Cacheable, bool, error) {
		var fileNo int
		if _, err := fmt.Sscanf(k.FileID, "%06d.sst", &fileNo); err != nil {
			return nil, false, fmt.Errorf("parse file id %q: %w", k.FileID, err)
		}
		return make(cache.Bytes, size), fileNo%16 == 0, nil
	}
}
