package cache

import "time"

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit(BlockPriority)                       {}
func (NoopMetrics) Miss()                                   {}
func (NoopMetrics) Evict(EvictReason, BlockPriority, int64) {}
func (NoopMetrics) Sweep(int64, time.Duration)              {}
func (NoopMetrics) Size(blocks, bytes int64)                {}
func (NoopMetrics) Access(WorkloadID)                       {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
