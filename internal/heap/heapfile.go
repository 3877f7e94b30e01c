// Package heap implements the heap file layer: a header page plus a
// singly linked chain of data pages, with record-level access driven
// entirely through the buffer manager.
package heap

import (
	log "github.com/sirupsen/logrus"

	"relstore/internal/buffer"
	"relstore/internal/common"
	"relstore/internal/page"
	"relstore/internal/pagestore"
)

// File is an open heap file handle: a pinned header page and, at most, one
// pinned "current" data page. The header stays pinned for the handle's
// entire lifetime; Scan and InsertScan both wrap one of these
// by composition rather than inheritance, so cursor primitives live here
// and scan-specific state lives in their own types.
type File struct {
	bm   *buffer.Manager
	file *pagestore.File

	headerPageNo common.PageNo
	headerBuf    []byte
	hdrDirty     bool

	curPageNo common.PageNo
	curBuf    []byte
	curDirty  bool
	curRid    common.RID
}

// Create creates a new heap file named name: a header page plus a single,
// empty data page. It fails with status.ErrFileExists if name already
// exists.
func Create(bm *buffer.Manager, store *pagestore.Store, name string) error {
	file, err := store.CreateFile(name)
	if err != nil {
		return err
	}

	hdrPageNo, hdrBuf, err := bm.AllocPage(file)
	if err != nil {
		file.Close()
		return err
	}
	fh := page.NewFileHdrPage(hdrBuf)
	fh.Init(name)

	dataPageNo, dataBuf, err := bm.AllocPage(file)
	if err != nil {
		file.Close()
		return err
	}
	dp := page.NewDataPage(dataBuf)
	dp.Init(dataPageNo)

	fh.SetFirstPage(dataPageNo)
	fh.SetLastPage(dataPageNo)
	fh.SetRecCnt(0)
	fh.SetPageCnt(1)

	if err := bm.Unpin(file, hdrPageNo, true); err != nil {
		file.Close()
		return err
	}
	if err := bm.Unpin(file, dataPageNo, true); err != nil {
		file.Close()
		return err
	}
	if err := bm.FlushFile(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Open opens an existing heap file, pinning its header page and its first
// data page as the initial current page.
func Open(bm *buffer.Manager, store *pagestore.Store, name string) (*File, error) {
	f, err := store.OpenFile(name)
	if err != nil {
		return nil, err
	}

	hdrPageNo := f.GetFirstPage()
	hdrBuf, err := bm.ReadPage(f, hdrPageNo)
	if err != nil {
		f.Close()
		return nil, err
	}
	fh := page.NewFileHdrPage(hdrBuf)

	firstPage := fh.FirstPage()
	dataBuf, err := bm.ReadPage(f, firstPage)
	if err != nil {
		bm.Unpin(f, hdrPageNo, false)
		f.Close()
		return nil, err
	}

	return &File{
		bm:           bm,
		file:         f,
		headerPageNo: hdrPageNo,
		headerBuf:    hdrBuf,
		curPageNo:    firstPage,
		curBuf:       dataBuf,
		curRid:       common.NullRID,
	}, nil
}

func (hf *File) header() *page.FileHdrPage {
	return page.NewFileHdrPage(hf.headerBuf)
}

// Close unpins the current page (if any) and the header page, flushes
// every cached page belonging to this file, then closes the underlying
// file. A subsequent Open reopens the file store handle fresh, so any
// page left dirty-but-unflushed here would otherwise be orphaned against
// a closed os.File the next time the table is opened. Unpin errors are
// logged, not propagated — the original treats them the same way so
// shutdown always proceeds.
func (hf *File) Close() error {
	if hf.curBuf != nil {
		if err := hf.bm.Unpin(hf.file, hf.curPageNo, hf.curDirty); err != nil {
			log.WithError(err).WithField("page", hf.curPageNo).Warn("heap file close: unpin of data page failed")
		}
		hf.curBuf = nil
	}
	if err := hf.bm.Unpin(hf.file, hf.headerPageNo, hf.hdrDirty); err != nil {
		log.WithError(err).WithField("page", hf.headerPageNo).Warn("heap file close: unpin of header page failed")
	}
	if err := hf.bm.FlushFile(hf.file); err != nil {
		log.WithError(err).Warn("heap file close: flush failed")
	}
	return hf.file.Close()
}

// RecCnt returns the number of records currently in the file, per the
// header page.
func (hf *File) RecCnt() int32 {
	return hf.header().RecCnt()
}

// GetRecord retrieves an arbitrary record by rid, repositioning the
// current page if necessary.
func (hf *File) GetRecord(rid common.RID) ([]byte, error) {
	if hf.curBuf == nil {
		buf, err := hf.bm.ReadPage(hf.file, rid.PageNo)
		if err != nil {
			return nil, err
		}
		hf.curPageNo = rid.PageNo
		hf.curBuf = buf
		hf.curDirty = false
	} else if rid.PageNo != hf.curPageNo {
		if err := hf.bm.Unpin(hf.file, hf.curPageNo, hf.curDirty); err != nil {
			hf.curBuf = nil
			return nil, err
		}
		buf, err := hf.bm.ReadPage(hf.file, rid.PageNo)
		if err != nil {
			hf.curBuf = nil
			return nil, err
		}
		hf.curPageNo = rid.PageNo
		hf.curBuf = buf
		hf.curDirty = false
	}

	dp := page.NewDataPage(hf.curBuf)
	rec, err := dp.GetRecord(rid)
	if err != nil {
		return nil, err
	}
	hf.curRid = rid
	return rec, nil
}
