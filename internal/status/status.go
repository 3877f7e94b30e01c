// Package status defines the sentinel errors surfaced across layer
// boundaries, mirroring the Status codes of the original course project.
// Every non-OK return from a lower layer is one of these, optionally wrapped
// with github.com/pkg/errors for a call-chain trace.
package status

import "errors"

var (
	// ErrIo wraps an underlying I/O failure from the paged file store.
	ErrIo = errors.New("relstore: io error")

	// ErrBufferExceeded is returned when no frame can be evicted to
	// satisfy a read_page/alloc_page request.
	ErrBufferExceeded = errors.New("relstore: buffer pool exceeded")

	// ErrHashNotFound is returned by unpin when the requested (file, page)
	// is not present in the buffer hash table. Dispose and flush treat a
	// missing entry as normal and do not return it.
	ErrHashNotFound = errors.New("relstore: page not found in buffer hash table")

	// ErrPageNotPinned is returned by unpin when the frame's pin count is
	// already zero.
	ErrPageNotPinned = errors.New("relstore: page not pinned")

	// ErrPagePinned is returned by flush_file when a still-pinned frame
	// belongs to the file being flushed.
	ErrPagePinned = errors.New("relstore: page still pinned")

	// ErrBadBuffer signals an inconsistent frame: invalid yet still
	// referencing the file being flushed.
	ErrBadBuffer = errors.New("relstore: inconsistent buffer frame")

	// ErrHashError signals a structural fault inserting into the buffer
	// hash table (as opposed to a simple miss).
	ErrHashError = errors.New("relstore: buffer hash table error")

	// ErrFileExists is returned by heap file creation when the named file
	// is already present.
	ErrFileExists = errors.New("relstore: file already exists")

	// ErrFileEof terminates a heap file scan.
	ErrFileEof = errors.New("relstore: end of file")

	// ErrNoRecords is returned by a data page with no valid slots.
	ErrNoRecords = errors.New("relstore: no records on page")

	// ErrEndOfPage is returned when a page's slot cursor has advanced
	// past its last slot.
	ErrEndOfPage = errors.New("relstore: end of page")

	// ErrBadScanParam is returned by start_scan for an invalid filter.
	ErrBadScanParam = errors.New("relstore: invalid scan parameter")

	// ErrInvalidRecordLength is returned when a record can never fit on
	// any page of the configured page size.
	ErrInvalidRecordLength = errors.New("relstore: record too large for a page")

	// ErrAttrTypeMismatch is returned by the query layer when a supplied
	// attribute list doesn't match the target relation's schema.
	ErrAttrTypeMismatch = errors.New("relstore: attribute type mismatch")

	// ErrNotFound is returned by the catalog when a relation or attribute
	// cannot be resolved.
	ErrNotFound = errors.New("relstore: not found")

	// ErrNoSpace is an internal signal from a data page's InsertRecord
	// consumed by the heap file layer; it never crosses into
	// internal/heap's public API.
	ErrNoSpace = errors.New("relstore: page has no space")
)
