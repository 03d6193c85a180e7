package cache

import (
	"path"
	"testing"

	"go-mvindex/pkg/customerrors"
	"go-mvindex/pkg/pager"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func openCache(t *testing.T, fileName string, capacity int) *Cache {
	p, err := pager.Open(fileName, 128, false, 0644)
	require.NoError(t, err)

	c, err := Open(p, &Options{Capacity: capacity})
	require.NoError(t, err)
	return c
}

func TestCache_AddLoadRelease(t *testing.T) {
	c := openCache(t, pager.InMemoryFileName, 4)

	e, err := c.AddPage()
	require.NoError(t, err)
	require.Equal(t, uint64(0), e.PageIndex())
	require.Equal(t, uint64(1), c.FilledUpTo())

	e.Lock()
	e.Page().SetInt(pager.NextFreePosition, 7)
	e.Unlock()
	c.Release(e)

	same, err := c.Load(0)
	require.NoError(t, err)
	require.Same(t, e, same)
	require.Equal(t, int32(7), same.RLock().Page().GetInt(pager.NextFreePosition))
	same.RUnlock()
	c.Release(same)

	require.Panics(t, func() { c.Release(same) })
	require.NoError(t, c.Close())
}

func TestCache_Eviction(t *testing.T) {
	c := openCache(t, pager.InMemoryFileName, 2)

	for i := 0; i < 5; i++ {
		e, err := c.AddPage()
		require.NoError(t, err)
		e.Page().SetInt(pager.NextFreePosition, int32(i*10))
		c.Release(e)
	}
	require.LessOrEqual(t, len(c.items), 2)

	for i := 0; i < 5; i++ {
		e, err := c.Load(uint64(i))
		require.NoError(t, err)
		require.Equal(t, int32(i*10), e.Page().GetInt(pager.NextFreePosition))
		c.Release(e)
	}
	require.NoError(t, c.Close())
}

func TestCache_AllPinned(t *testing.T) {
	c := openCache(t, pager.InMemoryFileName, 1)

	e, err := c.AddPage()
	require.NoError(t, err)

	_, err = c.AddPage()
	require.True(t, errors.Is(err, customerrors.ErrCacheFull))

	c.Release(e)
	e, err = c.AddPage()
	require.NoError(t, err)
	c.Release(e)
	require.NoError(t, c.Close())
}

func TestCache_Persistence(t *testing.T) {
	fileName := path.Join(t.TempDir(), "cache.bin")
	c := openCache(t, fileName, 8)

	e, err := c.AddPage()
	require.NoError(t, err)
	e.Page().SetLong(pager.NextFreePosition, -5)
	c.Release(e)
	require.NoError(t, c.Close())

	c = openCache(t, fileName, 8)
	e, err = c.Load(0)
	require.NoError(t, err)
	require.Equal(t, int64(-5), e.Page().GetLong(pager.NextFreePosition))
	require.False(t, e.Page().IsDirty())
	c.Release(e)
	require.NoError(t, c.Close())
}

func TestCache_CloseAfterFailedFlush(t *testing.T) {
	fileName := path.Join(t.TempDir(), "readonly.bin")
	c := openCache(t, fileName, 8)
	e, err := c.AddPage()
	require.NoError(t, err)
	c.Release(e)
	require.NoError(t, c.Close())

	p, err := pager.Open(fileName, 128, true, 0644)
	require.NoError(t, err)
	c, err = Open(p, &Options{Capacity: 8})
	require.NoError(t, err)

	e, err = c.Load(0)
	require.NoError(t, err)
	e.Page().SetInt(pager.NextFreePosition, 1)
	c.Release(e)

	// dirty page can't be written to a read-only file, pager is closed anyway
	require.Error(t, c.Close())
	require.True(t, errors.Is(p.Close(), customerrors.ErrClosed))
}
