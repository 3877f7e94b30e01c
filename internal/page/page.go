// Package page implements the on-disk page format: a data page's slot
// directory and free-space bookkeeping, and the heap file header page
// layout. Fields are read and written with encoding/binary rather than
// unsafe pointer casts so that multi-byte fields are never dereferenced
// through a misaligned pointer (see relstore's design notes on the match
// filter's byte-wise comparisons for the same concern).
package page

import (
	"encoding/binary"

	"relstore/internal/common"
	"relstore/internal/status"
)

// PageSize is the fixed size of every page in the store.
const PageSize = 4096

const (
	dpHeaderSize = 16 // pageNo, nextPage, numSlots, freeStart
	slotSize     = 8  // offset int32, length int32

	// DPFixed is the per-page fixed overhead: the data page header plus
	// one slot directory entry. A record longer than PageSize-DPFixed
	// can never fit on any page, empty or not.
	DPFixed = dpHeaderSize + slotSize
)

// Page is a raw, fixed-size block as handed back by the paged file store
// and cached in a buffer frame.
type Page [PageSize]byte

// DataPage overlays a slot directory and record area onto a Page. It does
// not own the underlying bytes; callers obtain one from a pinned buffer
// frame and must not retain it past the matching unpin.
type DataPage struct {
	buf []byte
}

// NewDataPage wraps buf (which must be at least PageSize bytes) as a data
// page view.
func NewDataPage(buf []byte) *DataPage {
	return &DataPage{buf: buf}
}

func (dp *DataPage) pageNo() common.PageNo {
	return common.PageNo(int32(binary.LittleEndian.Uint32(dp.buf[0:4])))
}

func (dp *DataPage) setPageNo(p common.PageNo) {
	binary.LittleEndian.PutUint32(dp.buf[0:4], uint32(int32(p)))
}

// NextPage returns the page number of the next data page in the chain, or
// common.NoNextPage at the tail.
func (dp *DataPage) NextPage() common.PageNo {
	return common.PageNo(int32(binary.LittleEndian.Uint32(dp.buf[4:8])))
}

// SetNextPage sets the chain link to the next data page.
func (dp *DataPage) SetNextPage(p common.PageNo) {
	binary.LittleEndian.PutUint32(dp.buf[4:8], uint32(int32(p)))
}

func (dp *DataPage) numSlots() int32 {
	return int32(binary.LittleEndian.Uint32(dp.buf[8:12]))
}

func (dp *DataPage) setNumSlots(n int32) {
	binary.LittleEndian.PutUint32(dp.buf[8:12], uint32(n))
}

func (dp *DataPage) freeStart() int32 {
	return int32(binary.LittleEndian.Uint32(dp.buf[12:16]))
}

func (dp *DataPage) setFreeStart(off int32) {
	binary.LittleEndian.PutUint32(dp.buf[12:16], uint32(off))
}

func (dp *DataPage) slotOffset(i int32) int {
	return dpHeaderSize + int(i)*slotSize
}

func (dp *DataPage) slot(i int32) (offset, length int32) {
	o := dp.slotOffset(i)
	offset = int32(binary.LittleEndian.Uint32(dp.buf[o : o+4]))
	length = int32(binary.LittleEndian.Uint32(dp.buf[o+4 : o+8]))
	return
}

func (dp *DataPage) setSlot(i, offset, length int32) {
	o := dp.slotOffset(i)
	binary.LittleEndian.PutUint32(dp.buf[o:o+4], uint32(offset))
	binary.LittleEndian.PutUint32(dp.buf[o+4:o+8], uint32(length))
}

// Init resets the page to an empty data page with the given page number.
func (dp *DataPage) Init(pageNo common.PageNo) {
	dp.setPageNo(pageNo)
	dp.SetNextPage(common.NoNextPage)
	dp.setNumSlots(0)
	dp.setFreeStart(int32(len(dp.buf)))
}

// PageNo returns this page's own page number.
func (dp *DataPage) PageNo() common.PageNo {
	return dp.pageNo()
}

// FreeSpace returns the number of record-payload bytes available for a
// subsequent InsertRecord, already accounting for the slot directory entry
// a new record requires.
func (dp *DataPage) FreeSpace() int {
	used := dpHeaderSize + int(dp.numSlots()+1)*slotSize
	free := int(dp.freeStart()) - used
	if free < 0 {
		return 0
	}
	return free
}

// InsertRecord appends data to the page's record area and allocates a new
// slot for it, returning the new record's RID. It fails with
// status.ErrNoSpace if the page lacks room; the heap file layer consumes
// that error internally and never surfaces it past InsertFileScan.
func (dp *DataPage) InsertRecord(data []byte) (common.RID, error) {
	if len(data) > dp.FreeSpace() {
		return common.RID{}, status.ErrNoSpace
	}
	newStart := dp.freeStart() - int32(len(data))
	copy(dp.buf[newStart:dp.freeStart()], data)

	slotNo := dp.numSlots()
	dp.setSlot(slotNo, newStart, int32(len(data)))
	dp.setNumSlots(slotNo + 1)
	dp.setFreeStart(newStart)

	return common.RID{PageNo: dp.pageNo(), SlotNo: slotNo}, nil
}

// DeleteRecord tombstones the slot for rid by zeroing its length. Per the
// engine's free-space policy, the vacated bytes are never reclaimed
// (coalescing is out of scope); only the slot directory is updated.
func (dp *DataPage) DeleteRecord(rid common.RID) error {
	if rid.SlotNo < 0 || rid.SlotNo >= dp.numSlots() {
		return status.ErrNoRecords
	}
	offset, length := dp.slot(rid.SlotNo)
	if length == 0 {
		return status.ErrNoRecords
	}
	dp.setSlot(rid.SlotNo, offset, 0)
	return nil
}

// GetRecord returns a slice borrowing directly into the page's backing
// buffer. The slice is valid only while the owning frame remains pinned.
func (dp *DataPage) GetRecord(rid common.RID) ([]byte, error) {
	if rid.SlotNo < 0 || rid.SlotNo >= dp.numSlots() {
		return nil, status.ErrNoRecords
	}
	offset, length := dp.slot(rid.SlotNo)
	if length == 0 {
		return nil, status.ErrNoRecords
	}
	return dp.buf[offset : offset+length], nil
}

// FirstRecord returns the RID of the first non-deleted slot on the page.
func (dp *DataPage) FirstRecord() (common.RID, error) {
	n := dp.numSlots()
	for i := int32(0); i < n; i++ {
		if _, length := dp.slot(i); length > 0 {
			return common.RID{PageNo: dp.pageNo(), SlotNo: i}, nil
		}
	}
	return common.RID{}, status.ErrNoRecords
}

// NextRecord returns the RID of the next non-deleted slot after cur, or
// status.ErrEndOfPage once the slot directory is exhausted.
func (dp *DataPage) NextRecord(cur common.RID) (common.RID, error) {
	n := dp.numSlots()
	for i := cur.SlotNo + 1; i < n; i++ {
		if _, length := dp.slot(i); length > 0 {
			return common.RID{PageNo: dp.pageNo(), SlotNo: i}, nil
		}
	}
	return common.RID{}, status.ErrEndOfPage
}

const (
	fileNameSize  = 64
	fhFirstOff    = fileNameSize
	fhLastOff     = fhFirstOff + 4
	fhRecCntOff   = fhLastOff + 4
	fhPageCntOff  = fhRecCntOff + 4
)

// FileHdrPage overlays the metadata every heap file carries in its first
// page: name, chain endpoints, and record/page counts.
type FileHdrPage struct {
	buf []byte
}

// NewFileHdrPage wraps buf as a file header page view.
func NewFileHdrPage(buf []byte) *FileHdrPage {
	return &FileHdrPage{buf: buf}
}

// Init populates a freshly allocated header page for a new heap file named
// name, with an empty chain.
func (h *FileHdrPage) Init(name string) {
	var nameBuf [fileNameSize]byte
	copy(nameBuf[:], name)
	copy(h.buf[0:fileNameSize], nameBuf[:])
	h.SetFirstPage(common.NoNextPage)
	h.SetLastPage(common.NoNextPage)
	h.SetRecCnt(0)
	h.SetPageCnt(0)
}

// FileName returns the heap file's stored name.
func (h *FileHdrPage) FileName() string {
	n := 0
	for n < fileNameSize && h.buf[n] != 0 {
		n++
	}
	return string(h.buf[0:n])
}

func (h *FileHdrPage) FirstPage() common.PageNo {
	return common.PageNo(int32(binary.LittleEndian.Uint32(h.buf[fhFirstOff : fhFirstOff+4])))
}

func (h *FileHdrPage) SetFirstPage(p common.PageNo) {
	binary.LittleEndian.PutUint32(h.buf[fhFirstOff:fhFirstOff+4], uint32(int32(p)))
}

func (h *FileHdrPage) LastPage() common.PageNo {
	return common.PageNo(int32(binary.LittleEndian.Uint32(h.buf[fhLastOff : fhLastOff+4])))
}

func (h *FileHdrPage) SetLastPage(p common.PageNo) {
	binary.LittleEndian.PutUint32(h.buf[fhLastOff:fhLastOff+4], uint32(int32(p)))
}

func (h *FileHdrPage) RecCnt() int32 {
	return int32(binary.LittleEndian.Uint32(h.buf[fhRecCntOff : fhRecCntOff+4]))
}

func (h *FileHdrPage) SetRecCnt(n int32) {
	binary.LittleEndian.PutUint32(h.buf[fhRecCntOff:fhRecCntOff+4], uint32(n))
}

func (h *FileHdrPage) PageCnt() int32 {
	return int32(binary.LittleEndian.Uint32(h.buf[fhPageCntOff : fhPageCntOff+4]))
}

func (h *FileHdrPage) SetPageCnt(n int32) {
	binary.LittleEndian.PutUint32(h.buf[fhPageCntOff:fhPageCntOff+4], uint32(n))
}
