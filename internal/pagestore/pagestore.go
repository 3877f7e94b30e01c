// Package pagestore implements the paged file store: named files backed by
// direct, aligned block I/O, with page allocation and a free-page list kept
// in page 0 of each file. It is the lowest layer relstore owns; page I/O
// goes through the buffer manager, while the heap and catalog layers use it
// only to create, open, close and check for table files.
package pagestore

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/ncw/directio"
	"github.com/pkg/errors"

	"relstore/internal/common"
	"relstore/internal/page"
	"relstore/internal/status"
)

// headerPageNo is always page 0 of a store file; it is private to pagestore
// and distinct from a heap file's own FileHdrPage, which lives at page 1.
const headerPageNo common.PageNo = 0

// firstDataPage is the page number the store hands back from GetFirstPage:
// the heap file header page immediately follows the store's own allocation
// header.
const firstDataPage common.PageNo = 1

const (
	allocNextOff    = 0 // int32: next never-yet-allocated page number
	allocFreeCntOff = 4 // int32: length of the free-page list
	allocListOff    = 8 // int32[...]: free page numbers, LIFO
)

var maxFreeListLen = (page.PageSize - allocListOff) / 4

// Store opens named tables under a single data directory, one *os.File per
// open table, each with directio-aligned page-sized I/O exactly as the
// buffer manager's sole on-disk collaborator.
type Store struct {
	dataDir string
}

// NewStore returns a Store rooted at dataDir. The directory is created if
// absent.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "pagestore: create data directory")
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dataDir, name+".tbl")
}

// File is one open table file, with its own allocation header cached in
// memory and flushed on every structural change (allocate/dispose), the
// same way the teacher's DiskManager persists its header eagerly rather
// than relying on the buffer manager to evict it.
type File struct {
	name string
	fi   *os.File

	nextPage common.PageNo
	freeList []common.PageNo
}

// Exists reports whether a table file named name is already present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// CreateFile creates a new, empty table file with just its allocation
// header page. It fails with status.ErrFileExists if the file is present.
func (s *Store) CreateFile(name string) (*File, error) {
	p := s.path(name)
	if _, err := os.Stat(p); err == nil {
		return nil, status.ErrFileExists
	}
	fi, err := directio.OpenFile(p, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(status.ErrIo, err.Error())
	}
	f := &File{name: name, fi: fi, nextPage: firstDataPage}
	if err := f.writeHeader(); err != nil {
		fi.Close()
		return nil, err
	}
	return f, nil
}

// OpenFile opens an existing table file and loads its allocation header.
func (s *Store) OpenFile(name string) (*File, error) {
	p := s.path(name)
	fi, err := directio.OpenFile(p, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(status.ErrIo, err.Error())
	}
	f := &File{name: name, fi: fi}
	if err := f.readHeader(); err != nil {
		fi.Close()
		return nil, err
	}
	return f, nil
}

// Close closes the underlying OS file.
func (f *File) Close() error {
	return f.fi.Close()
}

// Name returns the table name this file was opened or created with.
func (f *File) Name() string {
	return f.name
}

// GetFirstPage returns the page number of the heap file header page, which
// is always the page immediately following the store's own allocation
// header.
func (f *File) GetFirstPage() common.PageNo {
	return firstDataPage
}

func (f *File) writeHeader() error {
	buf := directio.AlignedBlock(page.PageSize)
	binary.LittleEndian.PutUint32(buf[allocNextOff:], uint32(int32(f.nextPage)))
	binary.LittleEndian.PutUint32(buf[allocFreeCntOff:], uint32(len(f.freeList)))
	for i, p := range f.freeList {
		off := allocListOff + i*4
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(p)))
	}
	return f.writeRaw(headerPageNo, buf)
}

func (f *File) readHeader() error {
	buf, err := f.readRaw(headerPageNo)
	if err != nil {
		return err
	}
	f.nextPage = common.PageNo(int32(binary.LittleEndian.Uint32(buf[allocNextOff:])))
	n := int32(binary.LittleEndian.Uint32(buf[allocFreeCntOff:]))
	f.freeList = make([]common.PageNo, n)
	for i := int32(0); i < n; i++ {
		off := allocListOff + int(i)*4
		f.freeList[i] = common.PageNo(int32(binary.LittleEndian.Uint32(buf[off:])))
	}
	return nil
}

// AllocatePage hands back a fresh page number, preferring the free list
// (LIFO) before extending the file. A page that extends the file is
// zero-filled on disk; a page reused from the free list keeps whatever
// bytes it last held on disk. The page is not interpreted as any
// particular page format: the buffer manager's AllocPage zeroes its frame,
// and the heap layer calls Init on it through the page package before use.
func (f *File) AllocatePage() (common.PageNo, error) {
	var pageNo common.PageNo
	if n := len(f.freeList); n > 0 {
		pageNo = f.freeList[n-1]
		f.freeList = f.freeList[:n-1]
	} else {
		pageNo = f.nextPage
		f.nextPage++
		blank := directio.AlignedBlock(page.PageSize)
		if err := f.writeRaw(pageNo, blank); err != nil {
			return 0, err
		}
	}
	if err := f.writeHeader(); err != nil {
		return 0, err
	}
	return pageNo, nil
}

// DisposePage returns pageNo to the free list for reuse by a later
// AllocatePage. The list is capped to what one header page can hold;
// beyond that, pages are simply leaked (acceptable for a single-process,
// best-effort store with no compaction).
func (f *File) DisposePage(pageNo common.PageNo) error {
	if len(f.freeList) < maxFreeListLen {
		f.freeList = append(f.freeList, pageNo)
	}
	return f.writeHeader()
}

// ReadPage reads pageNo's bytes into dst, which must be page.PageSize bytes.
func (f *File) ReadPage(pageNo common.PageNo, dst []byte) error {
	buf, err := f.readRaw(pageNo)
	if err != nil {
		return err
	}
	copy(dst, buf)
	return nil
}

// WritePage writes src (page.PageSize bytes) to pageNo.
func (f *File) WritePage(pageNo common.PageNo, src []byte) error {
	return f.writeRaw(pageNo, src)
}

func (f *File) readRaw(pageNo common.PageNo) ([]byte, error) {
	if pageNo < 0 {
		return nil, errors.Wrap(status.ErrIo, "negative page number")
	}
	offset := int64(pageNo) * page.PageSize
	if _, err := f.fi.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.Wrap(status.ErrIo, err.Error())
	}
	buf := directio.AlignedBlock(page.PageSize)
	if _, err := io.ReadFull(f.fi, buf); err != nil {
		return nil, errors.Wrap(status.ErrIo, err.Error())
	}
	return buf, nil
}

func (f *File) writeRaw(pageNo common.PageNo, data []byte) error {
	if pageNo < 0 {
		return errors.Wrap(status.ErrIo, "negative page number")
	}
	offset := int64(pageNo) * page.PageSize
	if _, err := f.fi.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrap(status.ErrIo, err.Error())
	}
	buf := directio.AlignedBlock(page.PageSize)
	copy(buf, data)
	if _, err := f.fi.Write(buf); err != nil {
		return errors.Wrap(status.ErrIo, err.Error())
	}
	return nil
}
