package bucket

import (
	"testing"

	"go-mvindex/pkg/customerrors"
	"go-mvindex/pkg/keys"
	"go-mvindex/pkg/pager"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var int64Codec = keys.NewCodec[int64](keys.Int64Serializer{}, keys.OrderedComparator[int64](), nil)

func int64Key(t *testing.T, key int64) []byte {
	t.Helper()
	stored, err := int64Codec.Encode(key)
	require.NoError(t, err)
	return stored
}

func TestNonLeaf_New(t *testing.T) {
	b := NewNonLeaf(pager.NewPage(2, 256), int64Codec)

	require.False(t, b.IsLeaf())
	require.True(t, b.IsEmpty())
	require.Equal(t, int64(-1), b.GetLeftSibling())
	require.Equal(t, int64(-1), b.GetRightSibling())

	loaded := Load(b.Page(), int64Codec)
	require.IsType(t, &NonLeaf[int64]{}, loaded)

	require.Panics(t, func() { OpenLeaf(b.Page(), int64Codec) })
	require.NotPanics(t, func() { OpenNonLeaf(b.Page(), int64Codec) })
}

func TestNonLeaf_AddNonLeafEntry(t *testing.T) {
	b := NewNonLeaf(pager.NewPage(2, 256), int64Codec)

	require.True(t, b.AddNonLeafEntry(0, int64Key(t, 10), 1, 2, true))
	require.Equal(t, int32(240), b.Page().GetInt(positionsArrayOffset))
	require.Equal(t, int32(1), b.Page().GetInt(240))
	require.Equal(t, int32(2), b.Page().GetInt(244))
	require.Equal(t, int64Key(t, 10), b.Page().GetBinary(248, 8))

	require.True(t, b.AddNonLeafEntry(1, int64Key(t, 30), 2, 3, true))
	require.True(t, b.AddNonLeafEntry(1, int64Key(t, 20), 5, 6, true))

	require.Equal(t, NonLeafEntry{Key: int64Key(t, 10), Left: 1, Right: 5}, b.GetNonLeafEntry(0))
	require.Equal(t, NonLeafEntry{Key: int64Key(t, 20), Left: 5, Right: 6}, b.GetNonLeafEntry(1))
	require.Equal(t, NonLeafEntry{Key: int64Key(t, 30), Left: 6, Right: 3}, b.GetNonLeafEntry(2))

	require.True(t, b.AddNonLeafEntry(3, int64Key(t, 40), 8, 9, false))
	require.Equal(t, int32(3), b.GetRight(2))
	require.Equal(t, int32(8), b.GetLeft(3))
	require.Equal(t, int32(9), b.GetRight(3))

	for want, key := range []int64{10, 20, 30, 40} {
		idx, err := b.Find(key)
		require.NoError(t, err)
		require.Equal(t, want, idx)

		got, err := b.GetKey(want)
		require.NoError(t, err)
		require.Equal(t, key, got)
	}

	idx, err := b.Find(25)
	require.NoError(t, err)
	require.Equal(t, -3, idx)

	require.Panics(t, func() { b.GetLeft(4) })
}

func TestNonLeaf_NoSpace(t *testing.T) {
	b := NewNonLeaf(pager.NewPage(2, 128), int64Codec)
	for i := 0; i < 3; i++ {
		require.True(t, b.AddNonLeafEntry(i, int64Key(t, int64(i)), int32(i), int32(i+1), true))
	}

	snapshot := b.Page().GetBinary(0, 128)
	require.False(t, b.AddNonLeafEntry(3, int64Key(t, 3), 3, 4, true))
	require.False(t, b.AddAll([]NonLeafEntry{{Key: int64Key(t, 3), Left: 3, Right: 4}}))
	require.Equal(t, snapshot, b.Page().GetBinary(0, 128))
}

func TestNonLeaf_ShrinkAndAddAll(t *testing.T) {
	b := NewNonLeaf(pager.NewPage(2, 1024), int64Codec)

	var entries []NonLeafEntry
	for i := 0; i < 10; i++ {
		e := NonLeafEntry{Key: int64Key(t, int64(i*10)), Left: int32(i), Right: int32(i + 1)}
		require.True(t, b.AddNonLeafEntry(i, e.Key, e.Left, e.Right, true))
		entries = append(entries, e)
	}

	free := b.FreeSpace()
	b.Shrink(4)
	require.Equal(t, 4, b.Size())
	require.Equal(t, free+6*(pager.IntSize+16), b.FreeSpace())
	for i := 0; i < 4; i++ {
		require.Equal(t, entries[i], b.GetNonLeafEntry(i))
	}

	other := NewNonLeaf(pager.NewPage(3, 1024), int64Codec)
	require.True(t, other.AddAll(entries[4:]))
	for i := 0; i < 6; i++ {
		require.Equal(t, entries[4+i], other.GetNonLeafEntry(i))
	}
	require.Equal(t, 1024-6*16, other.freePointer())
}

func TestNonLeaf_EncryptedKeys(t *testing.T) {
	enc, err := keys.NewChaCha20Encryption([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	codec := keys.NewCodec[string](keys.StringSerializer{}, keys.OrderedComparator[string](), enc)

	b := NewNonLeaf(pager.NewPage(2, 4096), codec)
	stored := map[string][]byte{}
	for i, key := range []string{"alpha", "gamma", "omega"} {
		stored[key] = encode(t, codec, key)
		require.True(t, b.AddNonLeafEntry(i, stored[key], int32(i), int32(i+1), true))
	}

	// sealed key sits right after both child pointers
	require.True(t, b.AddNonLeafEntry(1, encode(t, codec, "beta"), 7, 8, true))
	require.Equal(t, int32(7), b.GetRight(0))
	require.Equal(t, int32(8), b.GetLeft(2))

	for want, key := range []string{"alpha", "beta", "gamma", "omega"} {
		idx, err := b.Find(key)
		require.NoError(t, err)
		require.Equal(t, want, idx)

		got, err := b.GetKey(want)
		require.NoError(t, err)
		require.Equal(t, key, got)
	}

	idx, err := b.Find("delta")
	require.NoError(t, err)
	require.Equal(t, -3, idx)

	entryPos := b.positionAt(3)
	raw := b.GetRawKey(3)
	require.Equal(t, stored["omega"], raw)
	require.Equal(t, pager.IntSize+int(b.Page().GetInt(entryPos+nonLeafKeyOffset)), len(raw))
	require.Equal(t, raw, b.Page().GetBinary(entryPos+nonLeafKeyOffset, len(raw)))
	require.NotContains(t, string(raw), "omega")

	entry := b.GetNonLeafEntry(3)
	require.Equal(t, NonLeafEntry{Key: stored["omega"], Left: 2, Right: 3}, entry)

	// rebuild keeps sealed keys readable
	b.Shrink(2)
	got, err := b.GetKey(1)
	require.NoError(t, err)
	require.Equal(t, "beta", got)

	pos := b.positionAt(0) + nonLeafKeyOffset + pager.IntSize
	b.Page().SetByte(pos, b.Page().GetByte(pos)^0xFF)
	_, err = b.GetKey(0)
	require.True(t, errors.Is(err, customerrors.ErrDecrypt))
}
