package buffer

import (
	"encoding/binary"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"relstore/internal/common"
	"relstore/internal/pagestore"
	"relstore/internal/status"
)

// hashTable maps (file, page_no) to a frame index using explicit chaining,
// sized at roughly 1.2x the frame pool so lookups stay close to O(1)
// without handing that control to Go's built-in map hashing.
type hashTable struct {
	buckets []int32 // head entry index per bucket, -1 if empty
	entries []chainEntry
	free    []int32 // recycled entry slots
}

type chainEntry struct {
	file     *pagestore.File
	pageNo   common.PageNo
	frameIdx int
	next     int32 // index into entries, -1 if none
	used     bool
}

func newHashTable(numFrames int) *hashTable {
	numBuckets := (numFrames*12 + 9) / 10 // ~1.2x, rounded up
	if numBuckets < 1 {
		numBuckets = 1
	}
	buckets := make([]int32, numBuckets)
	for i := range buckets {
		buckets[i] = -1
	}
	return &hashTable{buckets: buckets}
}

func hashKey(file *pagestore.File, pageNo common.PageNo) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(uintptr(unsafe.Pointer(file))))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(pageNo)))
	return xxhash.Sum64(buf[:])
}

func (h *hashTable) bucketFor(file *pagestore.File, pageNo common.PageNo) int {
	return int(hashKey(file, pageNo) % uint64(len(h.buckets)))
}

// lookup returns the frame index for (file, pageNo), if present.
func (h *hashTable) lookup(file *pagestore.File, pageNo common.PageNo) (int, bool) {
	b := h.bucketFor(file, pageNo)
	for idx := h.buckets[b]; idx != -1; idx = h.entries[idx].next {
		e := &h.entries[idx]
		if e.used && e.file == file && e.pageNo == pageNo {
			return e.frameIdx, true
		}
	}
	return 0, false
}

// insert adds (file, pageNo) -> frameIdx. It fails with status.ErrHashError
// if the key is already present, which would indicate two valid frames
// claiming the same page — a structural invariant violation, not a normal
// miss.
func (h *hashTable) insert(file *pagestore.File, pageNo common.PageNo, frameIdx int) error {
	if _, ok := h.lookup(file, pageNo); ok {
		return status.ErrHashError
	}
	b := h.bucketFor(file, pageNo)
	var idx int32
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
		h.entries[idx] = chainEntry{file: file, pageNo: pageNo, frameIdx: frameIdx, next: h.buckets[b], used: true}
	} else {
		idx = int32(len(h.entries))
		h.entries = append(h.entries, chainEntry{file: file, pageNo: pageNo, frameIdx: frameIdx, next: h.buckets[b], used: true})
	}
	h.buckets[b] = idx
	return nil
}

// remove deletes the entry for (file, pageNo) if present, reporting whether
// it was found.
func (h *hashTable) remove(file *pagestore.File, pageNo common.PageNo) bool {
	b := h.bucketFor(file, pageNo)
	prev := int32(-1)
	for idx := h.buckets[b]; idx != -1; idx = h.entries[idx].next {
		e := &h.entries[idx]
		if e.used && e.file == file && e.pageNo == pageNo {
			if prev == -1 {
				h.buckets[b] = e.next
			} else {
				h.entries[prev].next = e.next
			}
			e.used = false
			h.free = append(h.free, idx)
			return true
		}
		prev = idx
	}
	return false
}
