package cache

import (
	"context"
	"time"

	"github.com/go-kit/log"

	"github.com/IvanBrykalov/blockcache/policy"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictSweep: chosen by an eviction sweep.
	EvictSweep EvictReason = iota
	// EvictExplicit: removed by Evict.
	EvictExplicit
	// EvictFile: removed by EvictByFile (file deleted or compacted away).
	EvictFile
)

func (r EvictReason) String() string {
	switch r {
	case EvictSweep:
		return "sweep"
	case EvictExplicit:
		return "explicit"
	case EvictFile:
		return "file"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
// Hooks are called outside shard locks and must be safe for concurrent use.
type Metrics interface {
	// Hit reports the priority the block had when it was found, before the
	// access promoted it.
	Hit(p BlockPriority)
	Miss()
	Evict(reason EvictReason, p BlockPriority, bytes int64)
	Sweep(freed int64, took time.Duration)
	Size(blocks, bytes int64)
	Access(w WorkloadID)
}

// Clock provides time in UnixNano; useful for deterministic tests.
// It times sweeps only; access times come from the cache's logical clock.
type Clock interface{ NowUnixNano() int64 }

// Loader fetches and decodes a block on a GetOrLoad miss. inMemory selects the
// priority the block is cached with.
type Loader func(ctx context.Context, k BlockCacheKey) (v Cacheable, inMemory bool, err error)

// Options configures the cache. Zero values are safe;
// sane defaults are applied in New():
//   - MaxSizeBytes == 0 => 256 MiB
//   - zero bucket factors => 0.20/0.50/0.30
//   - zero MinFactor / AcceptableFactor / PerBlockOverhead => defaults
//   - Shards <= 0  => auto (rounded up to power of two)
//   - nil Policy   => tiered, using the bucket factors
//   - nil Metrics  => NoopMetrics
//   - nil Logger   => no-op logger
//
// EvictionThread == false and StatsPeriod == 0 are not defaulted: a zero
// Config sweeps inline and runs no stats loop. Start from DefaultConfig()
// (or LoadConfig / RegisterFlagsAndApplyDefaults) for the production
// defaults.
type Options struct {
	Config

	// Policy chooses sweep victims; nil => tiered.
	Policy policy.Policy[BlockCacheKey]

	// Loader fetches a block on miss. Used by GetOrLoad.
	Loader Loader

	// Observability
	// OnEvict is called after an entry left the cache, outside shard locks.
	OnEvict func(k BlockCacheKey, v Cacheable, reason EvictReason)
	Metrics Metrics
	Logger  log.Logger

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}
