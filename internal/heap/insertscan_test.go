package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/internal/common"
	"relstore/internal/page"
	"relstore/internal/status"
)

func TestInsertScan_SimpleInsert(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	rid, err := ins.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	hf, err := Open(bm, store, "t")
	require.NoError(t, err)
	defer hf.Close()
	rec, err := hf.GetRecord(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("aaaaaaaaaa"), rec)
}

func TestInsertScan_RecordTooLarge(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	defer ins.Close()

	huge := make([]byte, page.PageSize)
	_, err = ins.InsertRecord(huge)
	require.ErrorIs(t, err, status.ErrInvalidRecordLength)
}

// Mirrors the literal scenario from spec.md §8: a heap file whose last
// page has only 1 byte of free space, followed by a 100-byte insert,
// forces a page-overflow allocation with chain-link-before-unpin
// ordering.
func TestInsertScan_PageOverflowAllocatesNewPage(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)

	// Fill the first page down to exactly 1 byte of free space: one more
	// slot costs 8 bytes, so a record of (free - 8 - 1) payload bytes
	// leaves exactly 1 byte unused afterward.
	dp := page.NewDataPage(ins.hf.curBuf)
	fill := dp.FreeSpace() - 8 - 1
	require.Greater(t, fill, 0)
	_, err = ins.InsertRecord(make([]byte, fill))
	require.NoError(t, err)

	hdrBefore := ins.hf.header()
	pageCntBefore := hdrBefore.PageCnt()
	oldLastPage := ins.hf.curPageNo

	rid, err := ins.InsertRecord(make([]byte, 100))
	require.NoError(t, err)
	require.NotEqual(t, oldLastPage, rid.PageNo)

	hdr := ins.hf.header()
	require.Equal(t, pageCntBefore+1, hdr.PageCnt())
	require.Equal(t, rid.PageNo, hdr.LastPage())

	require.NoError(t, ins.Close())

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	defer sc.Close()
	require.NoError(t, sc.StartScan(0, 0, common.STRING, nil, common.EQ))

	found := false
	for {
		got, err := sc.ScanNext()
		if err == status.ErrFileEof {
			break
		}
		require.NoError(t, err)
		if got == rid {
			found = true
		}
	}
	require.True(t, found)
}

// Boundary from spec.md §8: inserting a record of size exactly
// PAGESIZE-DP_FIXED on a page with no remaining space still succeeds, by
// landing on a freshly allocated page sized to fit it exactly.
func TestInsertScan_MaxSizeRecordOnFullPageAllocatesNewPage(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)

	dp := page.NewDataPage(ins.hf.curBuf)
	_, err = ins.InsertRecord(make([]byte, dp.FreeSpace()))
	require.NoError(t, err)
	require.Equal(t, 0, page.NewDataPage(ins.hf.curBuf).FreeSpace())

	rid, err := ins.InsertRecord(make([]byte, page.PageSize-page.DPFixed))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	hf, err := Open(bm, store, "t")
	require.NoError(t, err)
	defer hf.Close()
	rec, err := hf.GetRecord(rid)
	require.NoError(t, err)
	require.Len(t, rec, page.PageSize-page.DPFixed)
}
