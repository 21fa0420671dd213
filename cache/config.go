package cache

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxSizeBytes     = 256 << 20
	DefaultSingleFactor     = 0.20
	DefaultMultiFactor      = 0.50
	DefaultMemoryFactor     = 0.30
	DefaultMinFactor        = 0.75
	DefaultAcceptableFactor = 1.0
	DefaultStatsPeriod      = 5 * time.Minute

	factorSumTolerance = 1e-4
)

// Config is the serialisable part of Options.
type Config struct {
	// MaxSizeBytes is the byte budget of the cache.
	MaxSizeBytes int64 `yaml:"max_size_bytes"`

	// Shards is the number of map partitions (0 = auto, rounded to pow2).
	Shards int `yaml:"shards"`

	// Bucket retention shares; they must sum to 1. Single should get the
	// smallest share so scans cannot displace reused blocks.
	SingleFactor float64 `yaml:"single_factor"`
	MultiFactor  float64 `yaml:"multi_factor"`
	MemoryFactor float64 `yaml:"memory_factor"`

	// MinFactor * MaxSizeBytes is what a sweep frees down to.
	MinFactor float64 `yaml:"min_factor"`
	// AcceptableFactor * MaxSizeBytes is the occupancy that triggers a sweep.
	AcceptableFactor float64 `yaml:"acceptable_factor"`

	// PerBlockOverhead is the fixed per-entry cost in size estimates.
	PerBlockOverhead int64 `yaml:"per_block_overhead"`

	// EvictionThread runs sweeps on a background goroutine instead of
	// inside the Put that crossed the threshold. Off in a zero Config;
	// DefaultConfig turns it on.
	EvictionThread bool `yaml:"eviction_thread"`

	// StatsPeriod is the interval of the statistics log line and hit-ratio
	// window roll (0 = disabled, which is what a zero Config gets;
	// DefaultConfig uses DefaultStatsPeriod).
	StatsPeriod time.Duration `yaml:"stats_period"`

	// StatsWindow is the number of periods HitRatioPastN averages over.
	StatsWindow int `yaml:"stats_window"`

	// GhostCapacity bounds the list of recently evicted keys used to count
	// re-admissions (0 = disabled).
	GhostCapacity int `yaml:"ghost_capacity"`
}

// DefaultConfig returns a Config with every default applied, including the
// eviction goroutine and the stats loop, which New leaves off for a zero
// Config.
func DefaultConfig() Config {
	return Config{
		MaxSizeBytes:     DefaultMaxSizeBytes,
		SingleFactor:     DefaultSingleFactor,
		MultiFactor:      DefaultMultiFactor,
		MemoryFactor:     DefaultMemoryFactor,
		MinFactor:        DefaultMinFactor,
		AcceptableFactor: DefaultAcceptableFactor,
		PerBlockOverhead: DefaultPerBlockOverhead,
		EvictionThread:   true,
		StatsPeriod:      DefaultStatsPeriod,
		StatsWindow:      defaultStatsWindow,
	}
}

// RegisterFlagsAndApplyDefaults registers flags for every field, prefixed
// with prefix, and sets the defaults.
func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	d := DefaultConfig()
	f.Int64Var(&cfg.MaxSizeBytes, prefix+"max-size-bytes", d.MaxSizeBytes, "Block cache byte budget.")
	f.IntVar(&cfg.Shards, prefix+"shards", d.Shards, "Number of map shards (0 = auto).")
	f.Float64Var(&cfg.SingleFactor, prefix+"single-factor", d.SingleFactor, "Share of the budget retained for single-access blocks.")
	f.Float64Var(&cfg.MultiFactor, prefix+"multi-factor", d.MultiFactor, "Share of the budget retained for multi-access blocks.")
	f.Float64Var(&cfg.MemoryFactor, prefix+"memory-factor", d.MemoryFactor, "Share of the budget retained for in-memory blocks.")
	f.Float64Var(&cfg.MinFactor, prefix+"min-factor", d.MinFactor, "Fraction of the budget a sweep frees down to.")
	f.Float64Var(&cfg.AcceptableFactor, prefix+"acceptable-factor", d.AcceptableFactor, "Fraction of the budget that triggers a sweep.")
	f.Int64Var(&cfg.PerBlockOverhead, prefix+"per-block-overhead", d.PerBlockOverhead, "Fixed per-entry bytes added to size estimates.")
	f.BoolVar(&cfg.EvictionThread, prefix+"eviction-thread", d.EvictionThread, "Run sweeps on a background goroutine.")
	f.DurationVar(&cfg.StatsPeriod, prefix+"stats-period", d.StatsPeriod, "Statistics log interval (0 = disabled).")
	f.IntVar(&cfg.StatsWindow, prefix+"stats-window", d.StatsWindow, "Number of statistics periods in the rolling hit ratio.")
	f.IntVar(&cfg.GhostCapacity, prefix+"ghost-capacity", d.GhostCapacity, "Recently evicted keys remembered for re-admission stats (0 = disabled).")
}

// LoadConfig decodes YAML over DefaultConfig. Unknown fields are rejected.
// An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode block cache config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (cfg Config) Validate() error {
	if cfg.MaxSizeBytes <= 0 {
		return fmt.Errorf("%w: max_size_bytes must be > 0, got %d", ErrInvalidConfig, cfg.MaxSizeBytes)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"single_factor", cfg.SingleFactor},
		{"multi_factor", cfg.MultiFactor},
		{"memory_factor", cfg.MemoryFactor},
		{"min_factor", cfg.MinFactor},
		{"acceptable_factor", cfg.AcceptableFactor},
	} {
		if f.v < 0 || f.v > 1 || math.IsNaN(f.v) {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidConfig, f.name, f.v)
		}
	}
	if sum := cfg.SingleFactor + cfg.MultiFactor + cfg.MemoryFactor; math.Abs(sum-1) > factorSumTolerance {
		return fmt.Errorf("%w: single+multi+memory factors must sum to 1, got %v", ErrInvalidConfig, sum)
	}
	if cfg.MinFactor > cfg.AcceptableFactor {
		return fmt.Errorf("%w: min_factor (%v) must not exceed acceptable_factor (%v)", ErrInvalidConfig, cfg.MinFactor, cfg.AcceptableFactor)
	}
	if cfg.PerBlockOverhead < 0 {
		return fmt.Errorf("%w: per_block_overhead must be >= 0, got %d", ErrInvalidConfig, cfg.PerBlockOverhead)
	}
	if cfg.StatsPeriod < 0 || cfg.StatsWindow < 0 || cfg.GhostCapacity < 0 {
		return fmt.Errorf("%w: stats_period, stats_window and ghost_capacity must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// withDefaults fills zero fields the way New documents.
func (cfg Config) withDefaults() Config {
	if cfg.MaxSizeBytes == 0 {
		cfg.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if cfg.SingleFactor == 0 && cfg.MultiFactor == 0 && cfg.MemoryFactor == 0 {
		cfg.SingleFactor, cfg.MultiFactor, cfg.MemoryFactor = DefaultSingleFactor, DefaultMultiFactor, DefaultMemoryFactor
	}
	if cfg.MinFactor == 0 {
		cfg.MinFactor = DefaultMinFactor
	}
	if cfg.AcceptableFactor == 0 {
		cfg.AcceptableFactor = DefaultAcceptableFactor
	}
	if cfg.PerBlockOverhead == 0 {
		cfg.PerBlockOverhead = DefaultPerBlockOverhead
	}
	if cfg.StatsWindow == 0 {
		cfg.StatsWindow = defaultStatsWindow
	}
	return cfg
}
