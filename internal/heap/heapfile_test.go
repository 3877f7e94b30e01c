package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/internal/buffer"
	"relstore/internal/pagestore"
)

func newTestEnv(t *testing.T) (*buffer.Manager, *pagestore.Store) {
	t.Helper()
	store, err := pagestore.NewStore(t.TempDir())
	require.NoError(t, err)
	bm := buffer.NewManager(8)
	return bm, store
}

func TestCreateOpenClose(t *testing.T) {
	bm, store := newTestEnv(t)

	require.NoError(t, Create(bm, store, "t"))

	hf, err := Open(bm, store, "t")
	require.NoError(t, err)
	require.Equal(t, int32(0), hf.RecCnt())
	require.NoError(t, hf.Close())
}

func TestCreateFailsIfExists(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))
	require.Error(t, Create(bm, store, "t"))
}

func TestGetRecordAcrossReopen(t *testing.T) {
	bm, store := newTestEnv(t)
	require.NoError(t, Create(bm, store, "t"))

	ins, err := OpenInsert(bm, store, "t")
	require.NoError(t, err)
	rid, err := ins.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	hf, err := Open(bm, store, "t")
	require.NoError(t, err)
	require.Equal(t, int32(1), hf.RecCnt())

	rec, err := hf.GetRecord(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("aaaaaaaaaa"), rec)
	require.NoError(t, hf.Close())
}
