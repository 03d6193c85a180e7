// Package nullbucket implements pages holding values of the null key: a
// chain of flat RID arrays and the entry point page that tracks them.
package nullbucket

import (
	"go-mvindex/pkg/pager"
	"go-mvindex/pkg/rid"
	"go-mvindex/util/helpers"
)

const (
	nextOffset         = pager.NextFreePosition
	nextFreeListOffset = nextOffset + pager.IntSize
	sizeOffset         = nextFreeListOffset + pager.IntSize
	valuesOffset       = sizeOffset + pager.IntSize

	// NoPage is the value of unset page pointers.
	NoPage = -1
)

// Capacity returns count of RIDs fitting in a null bucket page.
func Capacity(pageSize int) int {
	return (pageSize - valuesOffset) / rid.Size
}

// NullBucket is an unsorted array of RIDs with pointers to the next page
// of the value list and the next page of the free list.
type NullBucket struct {
	page *pager.Page
}

// New wraps page, a new page is formatted as an empty bucket.
func New(page *pager.Page, isNew bool) *NullBucket {
	b := &NullBucket{page: page}
	if isNew {
		b.SetNext(NoPage)
		b.SetNextFreeList(NoPage)
		b.setSize(0)
	}
	return b
}

func (b *NullBucket) Page() *pager.Page {
	return b.page
}

func (b *NullBucket) Next() int32 {
	return b.page.GetInt(nextOffset)
}

func (b *NullBucket) SetNext(pageIndex int32) {
	b.page.SetInt(nextOffset, pageIndex)
}

func (b *NullBucket) NextFreeList() int32 {
	return b.page.GetInt(nextFreeListOffset)
}

func (b *NullBucket) SetNextFreeList(pageIndex int32) {
	b.page.SetInt(nextFreeListOffset, pageIndex)
}

func (b *NullBucket) Size() int {
	return int(b.page.GetInt(sizeOffset))
}

func (b *NullBucket) setSize(v int) {
	b.page.SetInt(sizeOffset, int32(v))
}

func (b *NullBucket) IsEmpty() bool {
	return b.Size() == 0
}

func (b *NullBucket) IsFull() bool {
	return b.Size() >= Capacity(b.page.Size())
}

// AddValue appends value, it returns false if the page is full.
func (b *NullBucket) AddValue(value rid.RID) bool {
	if b.IsFull() {
		return false
	}

	size := b.Size()
	value.Put(b.page.Bytes()[valuePos(size):])
	b.setSize(size + 1)
	return true
}

// RemoveValue deletes the first occurrence of value sliding the values
// after it over its slot. It returns false if value isn't in the page.
func (b *NullBucket) RemoveValue(value rid.RID) bool {
	size := b.Size()
	for i := 0; i < size; i++ {
		if b.getValue(i) != value {
			continue
		}

		b.page.MoveData(valuePos(i+1), valuePos(i), (size-i-1)*rid.Size)
		b.setSize(size - 1)
		return true
	}
	return false
}

func (b *NullBucket) GetValues() []rid.RID {
	size := b.Size()
	values := make([]rid.RID, size)
	for i := range values {
		values[i] = b.getValue(i)
	}
	return values
}

func (b *NullBucket) getValue(i int) rid.RID {
	pos := valuePos(i)
	helpers.Assert(pos+rid.Size <= b.page.Size(), "value %d out of page %d", i, b.page.Id)
	return rid.Read(b.page.Bytes()[pos : pos+rid.Size])
}

func valuePos(i int) int {
	return valuesOffset + i*rid.Size
}
