package util

import "runtime"

// maxShards bounds the automatic shard count.
const maxShards = 256

// NextPow2 returns the smallest power of two >= x (1 for x == 0).
// Values above 1<<63 are clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// ShardCount resolves a configured shard count to a power of two.
// requested <= 0 picks nextPow2(2*GOMAXPROCS) clamped to [1..256].
func ShardCount(requested int) int {
	if requested > 0 {
		return int(NextPow2(uint64(requested)))
	}
	p := max(runtime.GOMAXPROCS(0), 1)
	return min(int(NextPow2(uint64(p*2))), maxShards)
}

// ShardIndex maps a hash onto n shards; n must be a power of two.
func ShardIndex(hash uint64, n int) int {
	return int(hash & uint64(n-1))
}
