package heap

import (
	log "github.com/sirupsen/logrus"

	"relstore/internal/buffer"
	"relstore/internal/common"
	"relstore/internal/page"
	"relstore/internal/pagestore"
	"relstore/internal/status"
)

// Scan is a forward iterator over a heap file's records, with an optional
// fixed-field filter and a mark/reset snapshot. It owns a heap file handle
// by composition, not inheritance, so the cursor primitives on File are
// reused rather than duplicated.
type Scan struct {
	hf *File
	f  filter

	markedPageNo common.PageNo
	markedRid    common.RID
}

// OpenScan opens name as a heap file and wraps it for scanning.
func OpenScan(bm *buffer.Manager, store *pagestore.Store, name string) (*Scan, error) {
	hf, err := Open(bm, store, name)
	if err != nil {
		return nil, err
	}
	return &Scan{hf: hf}, nil
}

// StartScan installs the scan's filter. A nil value disables filtering
// entirely, which also bypasses the offset/length/type/op validation below
// — this is how a caller requests an unfiltered "delete everything" or
// "select everything" scan with offset=0, length=0.
func (s *Scan) StartScan(offset, length int, typ common.Type, value []byte, op common.Operator) error {
	if value == nil {
		s.f = filter{}
		return nil
	}
	if offset < 0 || length < 1 {
		return status.ErrBadScanParam
	}
	switch typ {
	case common.STRING:
		// any length >= 1 accepted
	case common.INTEGER, common.FLOAT:
		if length != 4 {
			return status.ErrBadScanParam
		}
	default:
		return status.ErrBadScanParam
	}
	switch op {
	case common.LT, common.LTE, common.EQ, common.GTE, common.GT, common.NE:
	default:
		return status.ErrBadScanParam
	}
	s.f = filter{enabled: true, offset: offset, length: length, typ: typ, value: value, op: op}
	return nil
}

// ScanNext advances the cursor to the next matching record, returning
// status.ErrFileEof once the chain is exhausted. Any time the chain runs
// out, the current page is unpinned and the cursor cleared before
// returning, so EndScan is always safe (and idempotent) to call
// afterward.
func (s *Scan) ScanNext() (common.RID, error) {
	hf := s.hf
	var rid common.RID
	var err error

	if hf.curBuf == nil {
		firstPage := hf.header().FirstPage()
		buf, ferr := hf.bm.ReadPage(hf.file, firstPage)
		if ferr != nil {
			return common.RID{}, ferr
		}
		hf.curPageNo = firstPage
		hf.curBuf = buf
		hf.curDirty = false
		rid, err = page.NewDataPage(buf).FirstRecord()
	} else {
		rid, err = page.NewDataPage(hf.curBuf).NextRecord(hf.curRid)
	}

	for {
		if err != nil {
			nextPageNo := page.NewDataPage(hf.curBuf).NextPage()
			if nextPageNo == common.NoNextPage {
				if uerr := hf.bm.Unpin(hf.file, hf.curPageNo, hf.curDirty); uerr != nil {
					log.WithError(uerr).Warn("scan: unpin at end of file failed")
				}
				hf.curBuf = nil
				hf.curPageNo = 0
				hf.curDirty = false
				return common.RID{}, status.ErrFileEof
			}
			if uerr := hf.bm.Unpin(hf.file, hf.curPageNo, hf.curDirty); uerr != nil {
				return common.RID{}, uerr
			}
			nbuf, rerr := hf.bm.ReadPage(hf.file, nextPageNo)
			if rerr != nil {
				hf.curBuf = nil
				return common.RID{}, rerr
			}
			hf.curPageNo = nextPageNo
			hf.curBuf = nbuf
			hf.curDirty = false
			rid, err = page.NewDataPage(nbuf).FirstRecord()
			continue
		}

		dp := page.NewDataPage(hf.curBuf)
		rec, gerr := dp.GetRecord(rid)
		if gerr != nil {
			return common.RID{}, gerr
		}
		if s.f.matches(rec) {
			hf.curRid = rid
			return rid, nil
		}
		rid, err = dp.NextRecord(rid)
	}
}

// GetRecord returns the record at the scan's current cursor. The page
// remains pinned.
func (s *Scan) GetRecord() ([]byte, error) {
	return page.NewDataPage(s.hf.curBuf).GetRecord(s.hf.curRid)
}

// Mark snapshots the scan's current position for a later Reset.
func (s *Scan) Mark() {
	s.markedPageNo = s.hf.curPageNo
	s.markedRid = s.hf.curRid
}

// Reset returns the cursor to the last Mark.
func (s *Scan) Reset() error {
	hf := s.hf
	if s.markedPageNo != hf.curPageNo {
		if hf.curBuf != nil {
			if err := hf.bm.Unpin(hf.file, hf.curPageNo, hf.curDirty); err != nil {
				return err
			}
		}
		buf, err := hf.bm.ReadPage(hf.file, s.markedPageNo)
		if err != nil {
			return err
		}
		hf.curPageNo = s.markedPageNo
		hf.curBuf = buf
		hf.curDirty = false
	}
	hf.curRid = s.markedRid
	return nil
}

// DeleteRecord deletes the record at the scan's current cursor.
func (s *Scan) DeleteRecord() error {
	hf := s.hf
	if err := page.NewDataPage(hf.curBuf).DeleteRecord(hf.curRid); err != nil {
		return err
	}
	hf.curDirty = true
	hdr := hf.header()
	hdr.SetRecCnt(hdr.RecCnt() - 1)
	hf.hdrDirty = true
	return nil
}

// EndScan unpins the current page and clears the cursor. It is a no-op if
// the cursor is already clear, including after ScanNext has already hit
// status.ErrFileEof.
func (s *Scan) EndScan() error {
	hf := s.hf
	if hf.curBuf == nil {
		return nil
	}
	err := hf.bm.Unpin(hf.file, hf.curPageNo, hf.curDirty)
	hf.curBuf = nil
	hf.curPageNo = 0
	hf.curDirty = false
	return err
}

// Close ends the scan and releases the underlying heap file handle.
func (s *Scan) Close() error {
	if err := s.EndScan(); err != nil {
		log.WithError(err).Warn("scan close: end scan failed")
	}
	return s.hf.Close()
}

// RecCnt exposes the underlying heap file's record count.
func (s *Scan) RecCnt() int32 {
	return s.hf.RecCnt()
}
