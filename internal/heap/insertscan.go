package heap

import (
	"relstore/internal/buffer"
	"relstore/internal/common"
	"relstore/internal/page"
	"relstore/internal/pagestore"
	"relstore/internal/status"
)

// InsertScan wraps an open heap file for appending records, always
// inserting at the tail page of the chain and allocating a fresh page on
// overflow.
type InsertScan struct {
	hf *File
}

// OpenInsert opens name as a heap file and wraps it for inserts. The
// initial current page is repositioned to the chain's last page, since
// that's always where a new record is tried first.
func OpenInsert(bm *buffer.Manager, store *pagestore.Store, name string) (*InsertScan, error) {
	hf, err := Open(bm, store, name)
	if err != nil {
		return nil, err
	}

	lastPageNo := hf.header().LastPage()
	if lastPageNo != hf.curPageNo {
		if err := bm.Unpin(hf.file, hf.curPageNo, hf.curDirty); err != nil {
			hf.curBuf = nil
			hf.Close()
			return nil, err
		}
		buf, err := bm.ReadPage(hf.file, lastPageNo)
		if err != nil {
			hf.curBuf = nil
			hf.Close()
			return nil, err
		}
		hf.curPageNo = lastPageNo
		hf.curBuf = buf
		hf.curDirty = false
	}

	return &InsertScan{hf: hf}, nil
}

// InsertRecord appends data to the file, allocating a new tail page if the
// current one has no room. data longer than any page could ever hold fails
// with status.ErrInvalidRecordLength.
func (s *InsertScan) InsertRecord(data []byte) (common.RID, error) {
	if len(data) > page.PageSize-page.DPFixed {
		return common.RID{}, status.ErrInvalidRecordLength
	}

	hf := s.hf
	dp := page.NewDataPage(hf.curBuf)
	rid, err := dp.InsertRecord(data)
	if err == nil {
		hf.curDirty = true
		hf.curRid = rid
		hdr := hf.header()
		hdr.SetRecCnt(hdr.RecCnt() + 1)
		hf.hdrDirty = true
		return rid, nil
	}
	if err != status.ErrNoSpace {
		return common.RID{}, err
	}

	newPageNo, newBuf, err := hf.bm.AllocPage(hf.file)
	if err != nil {
		return common.RID{}, err
	}
	newDp := page.NewDataPage(newBuf)
	newDp.Init(newPageNo)

	// The chain link must be written into the old (still pinned) page
	// before it is unpinned, so a crash between the two unpins can never
	// strand the new page off the end of the chain.
	dp.SetNextPage(newPageNo)
	oldPageNo := hf.curPageNo
	if err := hf.bm.Unpin(hf.file, oldPageNo, true); err != nil {
		hf.bm.Unpin(hf.file, newPageNo, false)
		return common.RID{}, err
	}

	hf.curPageNo = newPageNo
	hf.curBuf = newBuf
	hf.curDirty = false

	rid, err = newDp.InsertRecord(data)
	if err != nil {
		return common.RID{}, err
	}
	hf.curDirty = true
	hf.curRid = rid

	hdr := hf.header()
	hdr.SetLastPage(newPageNo)
	hdr.SetPageCnt(hdr.PageCnt() + 1)
	hdr.SetRecCnt(hdr.RecCnt() + 1)
	hf.hdrDirty = true

	return rid, nil
}

// Close releases the underlying heap file handle, writing back the
// current page if any inserts landed on it.
func (s *InsertScan) Close() error {
	return s.hf.Close()
}
