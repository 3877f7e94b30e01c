package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/internal/common"
	"relstore/internal/pagestore"
	"relstore/internal/status"
)

func newTestStore(t *testing.T) *pagestore.File {
	t.Helper()
	dir := t.TempDir()
	store, err := pagestore.NewStore(dir)
	require.NoError(t, err)
	f, err := store.CreateFile("A")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestNewManager(t *testing.T) {
	m := NewManager(3)
	require.Equal(t, 3, m.Size())
	require.Equal(t, 2, m.clockHand)
}

// Mirrors the literal scenario from spec.md §8: N=3, read three freshly
// allocated pages of A, unpin all, read a fourth -> one frame evicted, and
// exactly three frames remain valid.
func TestManager_EvictsOnDemand(t *testing.T) {
	f := newTestStore(t)
	m := NewManager(3)

	var pages []common.PageNo
	for i := 0; i < 3; i++ {
		pn, err := f.AllocatePage()
		require.NoError(t, err)
		pages = append(pages, pn)
		_, err = m.ReadPage(f, pn)
		require.NoError(t, err)
	}
	for _, pn := range pages {
		require.NoError(t, m.Unpin(f, pn, false))
	}

	fourth, err := f.AllocatePage()
	require.NoError(t, err)
	_, err = m.ReadPage(f, fourth)
	require.NoError(t, err)

	validCount := 0
	for _, fr := range m.frames {
		if fr.valid {
			validCount++
		}
	}
	require.Equal(t, 3, validCount)
}

func TestManager_UnpinUnknownPage(t *testing.T) {
	f := newTestStore(t)
	m := NewManager(2)
	require.ErrorIs(t, m.Unpin(f, 99, false), status.ErrHashNotFound)
}

func TestManager_UnpinAlreadyUnpinned(t *testing.T) {
	f := newTestStore(t)
	m := NewManager(2)
	pn, err := f.AllocatePage()
	require.NoError(t, err)
	_, err = m.ReadPage(f, pn)
	require.NoError(t, err)
	require.NoError(t, m.Unpin(f, pn, false))
	require.ErrorIs(t, m.Unpin(f, pn, false), status.ErrPageNotPinned)
}

func TestManager_AllocPageIsZeroFilled(t *testing.T) {
	f := newTestStore(t)
	m := NewManager(2)
	_, buf, err := m.AllocPage(f)
	require.NoError(t, err)
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestManager_FlushFileFailsOnPinnedFrame(t *testing.T) {
	f := newTestStore(t)
	m := NewManager(2)
	_, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.ErrorIs(t, m.FlushFile(f), status.ErrPagePinned)
}

// Mirrors the literal scenario from spec.md §8: pin one page twice, unpin
// once dirty, once clean -> the frame ends up dirty with pin_count 0.
func TestManager_DoublePinDirtyPersists(t *testing.T) {
	f := newTestStore(t)
	m := NewManager(2)
	pn, err := f.AllocatePage()
	require.NoError(t, err)

	_, err = m.ReadPage(f, pn)
	require.NoError(t, err)
	_, err = m.ReadPage(f, pn)
	require.NoError(t, err)

	require.NoError(t, m.Unpin(f, pn, true))
	require.NoError(t, m.Unpin(f, pn, false))

	idx, ok := m.hash.lookup(f, pn)
	require.True(t, ok)
	fr := m.frames[idx]
	require.True(t, fr.dirty)
	require.Equal(t, 0, fr.pinCount)
}

func TestManager_BufferExceeded(t *testing.T) {
	f := newTestStore(t)
	m := NewManager(2)
	for i := 0; i < 2; i++ {
		pn, err := f.AllocatePage()
		require.NoError(t, err)
		_, err = m.ReadPage(f, pn)
		require.NoError(t, err)
	}
	pn, err := f.AllocatePage()
	require.NoError(t, err)
	_, err = m.ReadPage(f, pn)
	require.ErrorIs(t, err, status.ErrBufferExceeded)
}
