// Package buffer implements the fixed-size buffer pool: a clock-hand
// replacement policy over a pool of page-sized frames, with pinning and a
// dedicated hash table for (file, page_no) lookups.
package buffer

import (
	"sync"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"relstore/internal/common"
	"relstore/internal/pagestore"
	"relstore/internal/status"
)

const pageSize = 4096

// frame is one slot's metadata. The zero value is an invalid, unpinned,
// clean frame — the state every frame is born in and returns to on
// eviction.
type frame struct {
	file     *pagestore.File
	pageNo   common.PageNo
	pinCount int
	dirty    bool
	refBit   bool
	valid    bool
	frameNo  int
}

// Manager is the fixed-size buffer pool shared by every open heap file and
// scan in the process. mu serializes the whole pin/unpin/replace bookkeeping,
// and frameLocks holds one RWMutex per frame slot, kept separate from the
// frame struct itself since frames are replaced wholesale by value (a
// sync.RWMutex embedded in frame would be copied along with it). Neither
// lock changes the single-threaded cooperative semantics the rest of this
// package implements; they exist so pin/unpin/replace bookkeeping stays
// race-detector-clean under go test -race, matching the teacher's
// BufferPoolManager.mu and disk.Page's embedded sync.RWMutex.
type Manager struct {
	mu         sync.Mutex
	frameLocks []sync.RWMutex

	frames    []frame
	pool      [][]byte
	hash      *hashTable
	clockHand int
	numFrames int
}

// NewManager allocates a pool of n frames, all born invalid, with the clock
// hand positioned so its first advance lands on frame 0.
func NewManager(n int) *Manager {
	frames := make([]frame, n)
	pool := make([][]byte, n)
	for i := range frames {
		frames[i] = frame{frameNo: i}
		pool[i] = make([]byte, pageSize)
	}
	log.WithFields(log.Fields{
		"frames": n,
		"size":   humanize.Bytes(uint64(n * pageSize)),
	}).Info("buffer manager: pool allocated")

	return &Manager{
		frameLocks: make([]sync.RWMutex, n),
		frames:     frames,
		pool:       pool,
		hash:       newHashTable(n),
		clockHand:  n - 1,
		numFrames:  n,
	}
}

// Size returns the number of frames in the pool.
func (m *Manager) Size() int {
	return m.numFrames
}

// ReadPage pins and returns the bytes of (file, pageNo), faulting it in
// from disk if it isn't already cached.
func (m *Manager) ReadPage(file *pagestore.File, pageNo common.PageNo) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.hash.lookup(file, pageNo); ok {
		m.frameLocks[idx].Lock()
		f := &m.frames[idx]
		f.refBit = true
		f.pinCount++
		m.frameLocks[idx].Unlock()
		return m.pool[idx], nil
	}

	frameIdx, err := m.allocBuf()
	if err != nil {
		return nil, err
	}
	buf := m.pool[frameIdx]
	if err := file.ReadPage(pageNo, buf); err != nil {
		// Not yet in the hash table; nothing to roll back beyond leaving
		// the frame invalid, which it already is.
		m.frameLocks[frameIdx].Lock()
		m.frames[frameIdx] = frame{frameNo: frameIdx}
		m.frameLocks[frameIdx].Unlock()
		return nil, err
	}
	if err := m.hash.insert(file, pageNo, frameIdx); err != nil {
		// The original course project can leak a valid-but-uncached frame
		// here; this implementation never marks the descriptor valid
		// until the hash insert itself succeeds, so there is nothing to
		// undo but the frame stays invalid either way.
		m.frameLocks[frameIdx].Lock()
		m.frames[frameIdx] = frame{frameNo: frameIdx}
		m.frameLocks[frameIdx].Unlock()
		return nil, err
	}
	m.frameLocks[frameIdx].Lock()
	m.frames[frameIdx] = frame{file: file, pageNo: pageNo, pinCount: 1, valid: true, frameNo: frameIdx}
	m.frameLocks[frameIdx].Unlock()
	return buf, nil
}

// Unpin decrements the pin count of (file, pageNo) and, if dirtyHint, marks
// the frame dirty. Clearing dirty never happens here: dirty is additive
// only until the frame is written back.
func (m *Manager) Unpin(file *pagestore.File, pageNo common.PageNo, dirtyHint bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.hash.lookup(file, pageNo)
	if !ok {
		return status.ErrHashNotFound
	}
	m.frameLocks[idx].Lock()
	defer m.frameLocks[idx].Unlock()
	f := &m.frames[idx]
	if f.pinCount == 0 {
		return status.ErrPageNotPinned
	}
	f.pinCount--
	if dirtyHint {
		f.dirty = true
	}
	return nil
}

// AllocPage asks the file store for a new page number, pins a frame for
// it, and returns its zero-filled bytes. Callers are responsible for
// interpreting and initializing those bytes (as a data page or a file
// header page) before use — AllocPage itself is format-agnostic.
func (m *Manager) AllocPage(file *pagestore.File) (common.PageNo, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pageNo, err := file.AllocatePage()
	if err != nil {
		return 0, nil, err
	}
	frameIdx, err := m.allocBuf()
	if err != nil {
		return 0, nil, err
	}
	if err := m.hash.insert(file, pageNo, frameIdx); err != nil {
		m.frameLocks[frameIdx].Lock()
		m.frames[frameIdx] = frame{frameNo: frameIdx}
		m.frameLocks[frameIdx].Unlock()
		return 0, nil, err
	}
	m.frameLocks[frameIdx].Lock()
	m.frames[frameIdx] = frame{file: file, pageNo: pageNo, pinCount: 1, valid: true, frameNo: frameIdx}
	m.frameLocks[frameIdx].Unlock()
	buf := m.pool[frameIdx]
	for i := range buf {
		buf[i] = 0
	}
	return pageNo, buf, nil
}

// DisposePage invalidates any cached frame for (file, pageNo) without
// writing it back, then asks the file store to free the page number.
func (m *Manager) DisposePage(file *pagestore.File, pageNo common.PageNo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.hash.lookup(file, pageNo); ok {
		m.hash.remove(file, pageNo)
		m.frameLocks[idx].Lock()
		m.frames[idx] = frame{frameNo: idx}
		m.frameLocks[idx].Unlock()
	}
	return file.DisposePage(pageNo)
}

// FlushFile writes back every dirty, valid frame owned by file and removes
// it from the cache. It fails with status.ErrPagePinned if a pinned frame
// is encountered, and status.ErrBadBuffer if an invalid frame nonetheless
// references file (an inconsistency that should never arise).
func (m *Manager) FlushFile(file *pagestore.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.frames {
		m.frameLocks[i].Lock()
		f := &m.frames[i]
		if f.valid && f.file == file {
			if f.pinCount > 0 {
				m.frameLocks[i].Unlock()
				return status.ErrPagePinned
			}
			if f.dirty {
				if err := m.writeBack(f); err != nil {
					m.frameLocks[i].Unlock()
					return err
				}
			}
			m.hash.remove(f.file, f.pageNo)
			*f = frame{frameNo: f.frameNo}
		} else if !f.valid && f.file == file {
			m.frameLocks[i].Unlock()
			return status.ErrBadBuffer
		}
		m.frameLocks[i].Unlock()
	}
	return nil
}

// Close flushes every dirty valid frame on a best-effort basis and
// releases the pool. Leaked pins from callers that forgot to unpin do not
// prevent shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.frames {
		m.frameLocks[i].Lock()
		f := &m.frames[i]
		if f.valid && f.dirty {
			if err := m.writeBack(f); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"frame": f.frameNo, "page": f.pageNo,
				}).Warn("buffer manager shutdown: best-effort write-back failed")
			}
		}
		m.frameLocks[i].Unlock()
	}
	m.pool = nil
}

func (m *Manager) writeBack(f *frame) error {
	buf := m.pool[f.frameNo]
	if err := f.file.WritePage(f.pageNo, buf); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// allocBuf runs the clock algorithm to find a frame to (re)use, advancing
// the instance's clock hand by one step per inspection. Two full
// revolutions (2*numFrames steps) without finding a victim fails with
// status.ErrBufferExceeded.
func (m *Manager) allocBuf() (int, error) {
	maxSteps := 2 * m.numFrames
	for steps := 0; steps < maxSteps; steps++ {
		m.clockHand = (m.clockHand + 1) % m.numFrames
		f := &m.frames[m.clockHand]

		if !f.valid {
			return m.clockHand, nil
		}
		if f.refBit {
			f.refBit = false
			continue
		}
		if f.pinCount > 0 {
			continue
		}
		if f.dirty {
			if err := m.writeBack(f); err != nil {
				return 0, err
			}
		}
		m.hash.remove(f.file, f.pageNo)
		*f = frame{frameNo: f.frameNo}
		return m.clockHand, nil
	}
	return 0, status.ErrBufferExceeded
}
