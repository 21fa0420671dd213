package cache

import (
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(strings.NewReader(`
max_size_bytes: 1048576
single_factor: 0.25
multi_factor: 0.5
memory_factor: 0.25
eviction_thread: false
stats_period: 30s
ghost_capacity: 128
`))
	require.NoError(t, err)
	require.Equal(t, int64(1<<20), cfg.MaxSizeBytes)
	require.Equal(t, 0.25, cfg.SingleFactor)
	require.False(t, cfg.EvictionThread)
	require.Equal(t, 30*time.Second, cfg.StatsPeriod)
	require.Equal(t, 128, cfg.GhostCapacity)
	// untouched fields keep their defaults
	require.Equal(t, DefaultMinFactor, cfg.MinFactor)
	require.Equal(t, DefaultPerBlockOverhead, cfg.PerBlockOverhead)
}

func TestLoadConfig_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Rejects(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(strings.NewReader("max_size: 10\n"))
	require.Error(t, err, "unknown field")

	_, err = LoadConfig(strings.NewReader("min_factor: 0.9\nacceptable_factor: 0.8\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"zero size":          func(c *Config) { c.MaxSizeBytes = 0 },
		"factor above one":   func(c *Config) { c.MultiFactor = 1.5 },
		"negative factor":    func(c *Config) { c.SingleFactor = -0.1 },
		"factors sum":        func(c *Config) { c.MemoryFactor = 0.5 },
		"min over accept":    func(c *Config) { c.MinFactor, c.AcceptableFactor = 0.9, 0.8 },
		"negative overhead":  func(c *Config) { c.PerBlockOverhead = -1 },
		"negative ghost cap": func(c *Config) { c.GhostCapacity = -1 },
	}
	for name, mod := range cases {
		cfg := DefaultConfig()
		mod(&cfg)
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, name)
	}
	require.NoError(t, DefaultConfig().Validate())
}

// With several bad factors the error always names the first in field order.
func TestConfig_ValidateNamesFirstBadFactor(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SingleFactor = 2
	cfg.MemoryFactor = -1
	cfg.AcceptableFactor = 7
	for i := 0; i < 50; i++ {
		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.Contains(t, err.Error(), "single_factor")
	}
}

func TestConfig_RegisterFlags(t *testing.T) {
	t.Parallel()

	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlagsAndApplyDefaults("blockcache.", fs)
	require.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, fs.Parse([]string{
		"-blockcache.max-size-bytes=4096",
		"-blockcache.eviction-thread=false",
		"-blockcache.min-factor=0.5",
	}))
	require.Equal(t, int64(4096), cfg.MaxSizeBytes)
	require.False(t, cfg.EvictionThread)
	require.Equal(t, 0.5, cfg.MinFactor)
	require.NoError(t, cfg.Validate())
}
