package cache

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

type fileLayout struct {
	file    string
	primary bool
}

// fileIndex maps every (file, layout) to the set of cached block offsets so
// that invalidating a file touches only its own blocks.
//
// Lock order: a shard lock may be held while calling add/remove; the index
// never calls back into shards.
type fileIndex struct {
	mu    sync.Mutex
	files map[fileLayout]*roaring64.Bitmap
}

func newFileIndex() *fileIndex {
	return &fileIndex{files: make(map[fileLayout]*roaring64.Bitmap)}
}

func (x *fileIndex) add(k BlockCacheKey) {
	fl := fileLayout{k.FileID, k.Primary}
	x.mu.Lock()
	bm := x.files[fl]
	if bm == nil {
		bm = roaring64.New()
		x.files[fl] = bm
	}
	bm.Add(uint64(k.Offset))
	x.mu.Unlock()
}

func (x *fileIndex) remove(k BlockCacheKey) {
	fl := fileLayout{k.FileID, k.Primary}
	x.mu.Lock()
	if bm := x.files[fl]; bm != nil {
		bm.Remove(uint64(k.Offset))
		if bm.IsEmpty() {
			delete(x.files, fl)
		}
	}
	x.mu.Unlock()
}

// keys returns the cached keys of file in both layouts.
func (x *fileIndex) keys(file string) []BlockCacheKey {
	x.mu.Lock()
	defer x.mu.Unlock()

	var out []BlockCacheKey
	for _, primary := range [...]bool{true, false} {
		bm := x.files[fileLayout{file, primary}]
		if bm == nil {
			continue
		}
		it := bm.Iterator()
		for it.HasNext() {
			out = append(out, BlockCacheKey{FileID: file, Offset: int64(it.Next()), Primary: primary})
		}
	}
	return out
}

// blockCount returns the number of cached blocks of file in both layouts.
func (x *fileIndex) blockCount(file string) uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()

	var n uint64
	for _, primary := range [...]bool{true, false} {
		if bm := x.files[fileLayout{file, primary}]; bm != nil {
			n += bm.GetCardinality()
		}
	}
	return n
}

// fileIDs lists the files with at least one cached block.
func (x *fileIndex) fileIDs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	seen := make(map[string]struct{}, len(x.files))
	out := make([]string, 0, len(x.files))
	for fl := range x.files {
		if _, ok := seen[fl.file]; ok {
			continue
		}
		seen[fl.file] = struct{}{}
		out = append(out, fl.file)
	}
	return out
}
