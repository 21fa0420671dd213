package cache

import (
	"unsafe"

	"github.com/IvanBrykalov/blockcache/internal/util"
)

// Cacheable is the only thing the cache needs from a payload: a best-effort
// estimate of its resident size in bytes. Payloads are immutable once handed
// to the cache and may be read concurrently by any number of callers.
type Cacheable interface {
	HeapSize() int64
}

const sliceHeaderSize = int64(unsafe.Sizeof([]byte(nil)))

// Bytes is a raw block payload.
type Bytes []byte

// HeapSize reports the slice header plus its backing array.
func (b Bytes) HeapSize() int64 {
	return sliceHeaderSize + util.Align(int64(cap(b)))
}
