package bucket

import (
	"go-mvindex/pkg/keys"
	"go-mvindex/pkg/pager"
	"go-mvindex/util/helpers"
)

const (
	// non-leaf entry is [left child i32][right child i32][key]
	leftChildOffset  = 0
	rightChildOffset = leftChildOffset + pager.IntSize
	nonLeafKeyOffset = rightChildOffset + pager.IntSize
)

// NonLeaf is a bucket routing keys to child pages.
type NonLeaf[K any] struct {
	header[K]
}

// NewNonLeaf formats page as an empty non-leaf bucket.
func NewNonLeaf[K any](page *pager.Page, codec *keys.Codec[K]) *NonLeaf[K] {
	b := &NonLeaf[K]{newHeader(page, codec, nonLeafKeyOffset)}
	b.format(false)
	return b
}

// OpenNonLeaf wraps page already formatted as non-leaf bucket.
func OpenNonLeaf[K any](page *pager.Page, codec *keys.Codec[K]) *NonLeaf[K] {
	helpers.Assert(!isLeafPage(page), "page %d is not a non-leaf bucket", page.Id)
	return &NonLeaf[K]{newHeader(page, codec, nonLeafKeyOffset)}
}

func (b *NonLeaf[K]) GetNonLeafEntry(index int) NonLeafEntry {
	return NonLeafEntry{
		Key:   b.GetRawKey(index),
		Left:  b.GetLeft(index),
		Right: b.GetRight(index),
	}
}

func (b *NonLeaf[K]) GetLeft(index int) int32 {
	return b.page.GetInt(b.entryPosition(index) + leftChildOffset)
}

func (b *NonLeaf[K]) GetRight(index int) int32 {
	return b.page.GetInt(b.entryPosition(index) + rightChildOffset)
}

// AddNonLeafEntry inserts key in stored form with its children at index.
// With updateNeighbors the next entry's left child and the previous
// entry's right child are set to the new children. It returns false,
// leaving the page untouched, if the entry doesn't fit.
func (b *NonLeaf[K]) AddNonLeafEntry(index int, key []byte, left, right int32, updateNeighbors bool) bool {
	entrySize := nonLeafKeyOffset + len(key)
	if !b.hasRoom(entrySize, 1) {
		return false
	}

	pos := b.allocate(entrySize)
	b.insertPosition(index, pos)

	pos += b.page.SetInt(pos, left)
	pos += b.page.SetInt(pos, right)
	b.page.SetBinary(pos, key)

	if updateNeighbors {
		size := b.Size()
		if index+1 < size {
			b.page.SetInt(b.positionAt(index+1)+leftChildOffset, right)
		}
		if index > 0 {
			b.page.SetInt(b.positionAt(index-1)+rightChildOffset, left)
		}
	}

	return true
}

// Shrink keeps only first newSize entries rebuilding the entry data.
func (b *NonLeaf[K]) Shrink(newSize int) {
	helpers.Assert(newSize >= 0 && newSize <= b.Size(), "invalid new size %d", newSize)

	entries := make([]NonLeafEntry, newSize)
	for i := range entries {
		entries[i] = b.GetNonLeafEntry(i)
	}

	b.setFreePointer(b.page.Size())
	b.setSize(0)

	helpers.Assert(b.AddAll(entries), "page %d can't hold its own entries", b.page.Id)
}

// AddAll appends entries after the existing ones, caller keeps keys
// ordered. It returns false, leaving the page untouched, if entries don't
// fit.
func (b *NonLeaf[K]) AddAll(entries []NonLeafEntry) bool {
	required := 0
	for _, e := range entries {
		required += pager.IntSize + nonLeafKeyOffset + len(e.Key)
	}

	if b.freePointer()-required < b.positionsEnd(b.Size()) {
		return false
	}

	for _, e := range entries {
		index := b.Size()
		helpers.Assert(
			b.AddNonLeafEntry(index, e.Key, e.Left, e.Right, false),
			"no room for entry %d", index,
		)
	}

	return true
}
