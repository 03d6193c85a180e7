package nullbucket

import (
	"testing"

	"go-mvindex/pkg/pager"
	"go-mvindex/pkg/rid"

	"github.com/stretchr/testify/require"
)

func TestEntryPoint(t *testing.T) {
	ep := NewEntryPoint(pager.NewPage(0, 256), true)

	require.Equal(t, int32(0), ep.Size())
	require.Equal(t, int32(NoPage), ep.FreeListHeader())
	require.Equal(t, int32(NoPage), ep.FirstPage())
	require.Equal(t, int32(NoPage), ep.LastPage())

	ep.SetSize(3)
	ep.SetFreeListHeader(2)
	ep.SetFirstPage(1)
	ep.SetLastPage(3)

	ep = NewEntryPoint(ep.Page(), false)
	require.Equal(t, int32(3), ep.Size())
	require.Equal(t, int32(2), ep.FreeListHeader())
	require.Equal(t, int32(1), ep.FirstPage())
	require.Equal(t, int32(3), ep.LastPage())

	require.Equal(t, int32(3), ep.Page().GetInt(28))
	require.Equal(t, int32(2), ep.Page().GetInt(32))
	require.Equal(t, int32(1), ep.Page().GetInt(36))
	require.Equal(t, int32(3), ep.Page().GetInt(40))
}

func TestNullBucket_ScenarioB(t *testing.T) {
	const pageSize = 64 * 1024

	ep := NewEntryPoint(pager.NewPage(0, pageSize), true)
	require.Equal(t, int32(0), ep.Size())

	b := New(pager.NewPage(1, pageSize), true)
	capacity := Capacity(pageSize)
	require.Equal(t, (pageSize-40)/rid.Size, capacity)

	for i := 0; i < capacity; i++ {
		require.True(t, b.AddValue(rid.New(1, int64(i))))
	}
	require.True(t, b.IsFull())
	require.False(t, b.AddValue(rid.New(1, int64(capacity))))
	require.Equal(t, capacity, b.Size())

	require.True(t, b.RemoveValue(rid.New(1, 7)))
	require.Equal(t, capacity-1, b.Size())
	require.False(t, b.IsFull())
}

func TestNullBucket_Values(t *testing.T) {
	b := New(pager.NewPage(1, 256), true)

	require.True(t, b.IsEmpty())
	require.Equal(t, int32(NoPage), b.Next())
	require.Equal(t, int32(NoPage), b.NextFreeList())
	require.Equal(t, []rid.RID{}, b.GetValues())

	values := []rid.RID{rid.New(1, 1), rid.New(2, 2), rid.New(1, 1), rid.New(3, 3)}
	for _, v := range values {
		require.True(t, b.AddValue(v))
	}
	require.Equal(t, values, b.GetValues())
	require.Equal(t, int16(2), b.Page().GetShort(40+rid.Size))

	// same position in another cluster doesn't match
	require.False(t, b.RemoveValue(rid.New(2, 1)))

	require.True(t, b.RemoveValue(rid.New(1, 1)))
	require.Equal(t, []rid.RID{rid.New(2, 2), rid.New(1, 1), rid.New(3, 3)}, b.GetValues())

	require.True(t, b.RemoveValue(rid.New(3, 3)))
	require.True(t, b.RemoveValue(rid.New(1, 1)))
	require.True(t, b.RemoveValue(rid.New(2, 2)))
	require.True(t, b.IsEmpty())
	require.False(t, b.RemoveValue(rid.New(2, 2)))

	b.SetNext(5)
	b.SetNextFreeList(6)
	b = New(b.Page(), false)
	require.Equal(t, int32(5), b.Next())
	require.Equal(t, int32(6), b.NextFreeList())
	require.Equal(t, int32(5), b.Page().GetInt(28))
	require.Equal(t, int32(6), b.Page().GetInt(32))
}
