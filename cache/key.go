package cache

import (
	"cmp"
	"strconv"
	"strings"
	"unsafe"

	"github.com/IvanBrykalov/blockcache/internal/util"
)

// keyBaseSize is the fixed part of a key's footprint; the file identifier's
// bytes are added on top.
const keyBaseSize = int64(unsafe.Sizeof(BlockCacheKey{}))

// BlockCacheKey addresses exactly one block within one storage file.
// It is a comparable value: two keys are equal iff all three fields are.
type BlockCacheKey struct {
	// FileID names the storage file the block belongs to.
	FileID string
	// Offset is the byte offset of the block within the file.
	Offset int64
	// Primary distinguishes the current block layout from the legacy one.
	// Keys that differ only in this flag address different entries.
	Primary bool
}

// NewBlockCacheKey builds a key.
func NewBlockCacheKey(fileID string, offset int64, primary bool) BlockCacheKey {
	return BlockCacheKey{FileID: fileID, Offset: offset, Primary: primary}
}

// Hash is a pure function of the key's fields.
func (k BlockCacheKey) Hash() uint64 { return util.KeyHash(k.FileID, k.Offset, k.Primary) }

// HeapSize estimates the key's footprint.
func (k BlockCacheKey) HeapSize() int64 {
	return util.Align(keyBaseSize + int64(len(k.FileID)))
}

// Compare orders keys by file, offset, then layout (legacy first).
func (k BlockCacheKey) Compare(o BlockCacheKey) int {
	if c := strings.Compare(k.FileID, o.FileID); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Offset, o.Offset); c != 0 {
		return c
	}
	switch {
	case k.Primary == o.Primary:
		return 0
	case o.Primary:
		return -1
	default:
		return 1
	}
}

func (k BlockCacheKey) String() string {
	s := k.FileID + "_" + strconv.FormatInt(k.Offset, 10)
	if !k.Primary {
		s += "_legacy"
	}
	return s
}
