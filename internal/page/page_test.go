package page

import (
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/internal/common"
	"relstore/internal/status"
)

func newDataPage() *DataPage {
	buf := make([]byte, PageSize)
	dp := NewDataPage(buf)
	dp.Init(7)
	return dp
}

func TestDataPage_InitAndAccessors(t *testing.T) {
	dp := newDataPage()
	require.Equal(t, common.PageNo(7), dp.PageNo())
	require.Equal(t, common.NoNextPage, dp.NextPage())

	dp.SetNextPage(42)
	require.Equal(t, common.PageNo(42), dp.NextPage())
}

func TestDataPage_InsertGetDelete(t *testing.T) {
	dp := newDataPage()

	rid1, err := dp.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	rid2, err := dp.InsertRecord([]byte("bbbbbbbbbb"))
	require.NoError(t, err)

	rec, err := dp.GetRecord(rid1)
	require.NoError(t, err)
	require.Equal(t, []byte("aaaaaaaaaa"), rec)

	require.NoError(t, dp.DeleteRecord(rid1))
	_, err = dp.GetRecord(rid1)
	require.ErrorIs(t, err, status.ErrNoRecords)

	rec2, err := dp.GetRecord(rid2)
	require.NoError(t, err)
	require.Equal(t, []byte("bbbbbbbbbb"), rec2)
}

func TestDataPage_InsertRecordNoSpace(t *testing.T) {
	dp := newDataPage()
	huge := make([]byte, PageSize)
	_, err := dp.InsertRecord(huge)
	require.ErrorIs(t, err, status.ErrNoSpace)
}

func TestDataPage_FirstNextRecordSkipDeleted(t *testing.T) {
	dp := newDataPage()
	rid1, _ := dp.InsertRecord([]byte("aaaaaaaaaa"))
	rid2, _ := dp.InsertRecord([]byte("bbbbbbbbbb"))
	rid3, _ := dp.InsertRecord([]byte("cccccccccc"))

	require.NoError(t, dp.DeleteRecord(rid2))

	first, err := dp.FirstRecord()
	require.NoError(t, err)
	require.Equal(t, rid1, first)

	next, err := dp.NextRecord(first)
	require.NoError(t, err)
	require.Equal(t, rid3, next)

	_, err = dp.NextRecord(next)
	require.ErrorIs(t, err, status.ErrEndOfPage)
}

func TestDataPage_FirstRecordEmpty(t *testing.T) {
	dp := newDataPage()
	_, err := dp.FirstRecord()
	require.ErrorIs(t, err, status.ErrNoRecords)
}

func TestFileHdrPage_InitAndAccessors(t *testing.T) {
	buf := make([]byte, PageSize)
	h := NewFileHdrPage(buf)
	h.Init("mytable")

	require.Equal(t, "mytable", h.FileName())
	require.Equal(t, common.NoNextPage, h.FirstPage())
	require.Equal(t, common.NoNextPage, h.LastPage())
	require.Equal(t, int32(0), h.RecCnt())
	require.Equal(t, int32(0), h.PageCnt())

	h.SetFirstPage(1)
	h.SetLastPage(3)
	h.SetRecCnt(5)
	h.SetPageCnt(3)

	require.Equal(t, common.PageNo(1), h.FirstPage())
	require.Equal(t, common.PageNo(3), h.LastPage())
	require.Equal(t, int32(5), h.RecCnt())
	require.Equal(t, int32(3), h.PageCnt())
}
