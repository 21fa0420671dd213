// Package util contains internal helpers (hashing, sharding, padding, sizing).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// KeyHash hashes a block address (file, offset, layout flag) with xxhash.
// The result is stable across processes and is used for shard selection.
func KeyHash(file string, offset int64, primary bool) uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString(file)

	var tail [9]byte
	binary.LittleEndian.PutUint64(tail[:8], uint64(offset))
	if primary {
		tail[8] = 1
	}
	_, _ = d.Write(tail[:])
	return d.Sum64()
}
