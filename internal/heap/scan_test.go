package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/internal/common"
	"relstore/internal/status"
)

// Mirrors the literal scenario from spec.md §8: three 10-byte records,
// scan with a STRING/EQ filter on the second one.
func TestScan_FilteredMatch(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	_, err = ins.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	ridB, err := ins.InsertRecord([]byte("bbbbbbbbbb"))
	require.NoError(t, err)
	_, err = ins.InsertRecord([]byte("cccccccccc"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	defer sc.Close()

	require.NoError(t, sc.StartScan(0, 10, common.STRING, []byte("bbbbbbbbbb"), common.EQ))

	rid, err := sc.ScanNext()
	require.NoError(t, err)
	require.Equal(t, ridB, rid)

	_, err = sc.ScanNext()
	require.ErrorIs(t, err, status.ErrFileEof)
}

// Mirrors the literal scenario from spec.md §8: same file as the filtered
// match scenario, NE over "bbbbbbbbbb" returns the first and third RIDs,
// in that order.
func TestScan_FilteredNotEquals(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	ridA, err := ins.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	_, err = ins.InsertRecord([]byte("bbbbbbbbbb"))
	require.NoError(t, err)
	ridC, err := ins.InsertRecord([]byte("cccccccccc"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	defer sc.Close()
	require.NoError(t, sc.StartScan(0, 10, common.STRING, []byte("bbbbbbbbbb"), common.NE))

	first, err := sc.ScanNext()
	require.NoError(t, err)
	require.Equal(t, ridA, first)

	second, err := sc.ScanNext()
	require.NoError(t, err)
	require.Equal(t, ridC, second)

	_, err = sc.ScanNext()
	require.ErrorIs(t, err, status.ErrFileEof)
}

// Mirrors the literal scenario from spec.md §8: delete with an empty
// attribute name on a file of 5 records leaves rec_cnt at 0 and an
// immediate FileEof on the next scan.
func TestScan_DeleteAllWithEmptyAttribute(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := ins.InsertRecord([]byte("aaaaaaaaaa"))
		require.NoError(t, err)
	}
	require.NoError(t, ins.Close())

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	require.NoError(t, sc.StartScan(0, 0, common.STRING, nil, common.EQ))
	for {
		_, err := sc.ScanNext()
		if err == status.ErrFileEof {
			break
		}
		require.NoError(t, err)
		require.NoError(t, sc.DeleteRecord())
	}
	require.Equal(t, int32(0), sc.RecCnt())
	require.NoError(t, sc.Close())

	sc2, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	defer sc2.Close()
	require.NoError(t, sc2.StartScan(0, 0, common.STRING, nil, common.EQ))
	_, err = sc2.ScanNext()
	require.ErrorIs(t, err, status.ErrFileEof)
}

func TestScan_UnfilteredVisitsAll(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := ins.InsertRecord([]byte("aaaaaaaaaa"))
		require.NoError(t, err)
	}
	require.NoError(t, ins.Close())

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	defer sc.Close()
	require.NoError(t, sc.StartScan(0, 0, common.STRING, nil, common.EQ))

	count := 0
	for {
		_, err := sc.ScanNext()
		if err == status.ErrFileEof {
			break
		}
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 3, count)
}

func TestScan_MarkReset(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	rid1, err := ins.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	_, err = ins.InsertRecord([]byte("bbbbbbbbbb"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	defer sc.Close()
	require.NoError(t, sc.StartScan(0, 0, common.STRING, nil, common.EQ))

	first, err := sc.ScanNext()
	require.NoError(t, err)
	require.Equal(t, rid1, first)
	sc.Mark()

	_, err = sc.ScanNext()
	require.NoError(t, err)

	require.NoError(t, sc.Reset())
	rec, err := sc.GetRecord()
	require.NoError(t, err)
	require.Equal(t, []byte("aaaaaaaaaa"), rec)
}

func TestScan_DeleteRecord(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	_, err = ins.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	require.NoError(t, sc.StartScan(0, 0, common.STRING, nil, common.EQ))
	_, err = sc.ScanNext()
	require.NoError(t, err)
	require.NoError(t, sc.DeleteRecord())
	require.NoError(t, sc.Close())

	hf, err := Open(bm, store, "t")
	require.NoError(t, err)
	require.Equal(t, int32(0), hf.RecCnt())
	require.NoError(t, hf.Close())
}

func TestScan_EndScanIdempotent(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	sc, err := OpenScan(bm, store, "t")
	require.NoError(t, err)
	require.NoError(t, sc.StartScan(0, 0, common.STRING, nil, common.EQ))

	_, err = sc.ScanNext()
	require.ErrorIs(t, err, status.ErrFileEof)

	require.NoError(t, sc.EndScan())
	require.NoError(t, sc.EndScan())
	require.NoError(t, sc.Close())
}
