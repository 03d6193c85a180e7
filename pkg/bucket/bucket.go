// Package bucket implements the page format of a multi-value index node.
// A bucket page holds a header, a positions array growing up from the
// header and entry data growing down from the page end:
//
//	[durable header][free pointer][size][leaf flag][left sibling][right sibling]
//	[position 0]..[position size-1] -> free space <- [entry data]
//
// Leaf entries map a key to an ordered list of RIDs, the first RID is
// stored with the key and the rest in a chain of overflow items. Non-leaf
// entries map a key to its left and right child pages.
package bucket

import (
	"go-mvindex/pkg/keys"
	"go-mvindex/pkg/pager"
	"go-mvindex/pkg/rid"
	"go-mvindex/util/helpers"
)

const (
	freePointerOffset    = pager.NextFreePosition
	sizeOffset           = freePointerOffset + pager.IntSize
	flagsOffset          = sizeOffset + pager.IntSize
	leftSiblingOffset    = flagsOffset + pager.ByteSize
	rightSiblingOffset   = leftSiblingOffset + pager.LongSize
	positionsArrayOffset = rightSiblingOffset + pager.LongSize

	leafFlagBit = 0

	// endOfChain terminates overflow chains, also the value of unset
	// sibling pointers
	endOfChain = -1
)

// LeafEntry is a key in its stored form with all of its values.
type LeafEntry struct {
	Key    []byte
	Values []rid.RID
}

// NonLeafEntry is a key in its stored form with its child pages.
type NonLeafEntry struct {
	Key   []byte
	Left  int32
	Right int32
}

// Bucket is the contract shared by leaf and non-leaf buckets.
type Bucket[K any] interface {
	IsLeaf() bool
	IsEmpty() bool
	Size() int
	Find(key K) (int, error)
	GetKey(index int) (K, error)
	GetRawKey(index int) []byte
	Shrink(newSize int)
	GetLeftSibling() int64
	SetLeftSibling(pageIndex int64)
	GetRightSibling() int64
	SetRightSibling(pageIndex int64)
}

// Load wraps page holding a formatted bucket of either kind.
func Load[K any](page *pager.Page, codec *keys.Codec[K]) Bucket[K] {
	if isLeafPage(page) {
		return &Leaf[K]{newHeader(page, codec, leafKeyOffset)}
	}
	return &NonLeaf[K]{newHeader(page, codec, nonLeafKeyOffset)}
}

func isLeafPage(page *pager.Page) bool {
	return helpers.GetBit(page.GetByte(flagsOffset), leafFlagBit)
}

// header implements everything that doesn't depend on entry layout except
// of the distance between entry start and its key.
type header[K any] struct {
	page      *pager.Page
	codec     *keys.Codec[K]
	keyOffset int
}

func newHeader[K any](page *pager.Page, codec *keys.Codec[K], keyOffset int) header[K] {
	return header[K]{
		page:      page,
		codec:     codec,
		keyOffset: keyOffset,
	}
}

func (h *header[K]) format(isLeaf bool) {
	h.setFreePointer(h.page.Size())
	h.setSize(0)

	var flags uint8
	helpers.SetBit(&flags, leafFlagBit, isLeaf)
	h.page.SetByte(flagsOffset, flags)

	h.SetLeftSibling(endOfChain)
	h.SetRightSibling(endOfChain)
}

func (h *header[K]) IsLeaf() bool {
	return isLeafPage(h.page)
}

func (h *header[K]) IsEmpty() bool {
	return h.Size() == 0
}

func (h *header[K]) Size() int {
	return int(h.page.GetInt(sizeOffset))
}

// Page returns the page under the bucket.
func (h *header[K]) Page() *pager.Page {
	return h.page
}

// FreeSpace returns count of bytes between positions array and entry data.
func (h *header[K]) FreeSpace() int {
	return h.freePointer() - h.positionsEnd(h.Size())
}

func (h *header[K]) GetLeftSibling() int64 {
	return h.page.GetLong(leftSiblingOffset)
}

func (h *header[K]) SetLeftSibling(pageIndex int64) {
	h.page.SetLong(leftSiblingOffset, pageIndex)
}

func (h *header[K]) GetRightSibling() int64 {
	return h.page.GetLong(rightSiblingOffset)
}

func (h *header[K]) SetRightSibling(pageIndex int64) {
	h.page.SetLong(rightSiblingOffset, pageIndex)
}

// Find looks key up with binary search. It returns index of the key if it
// is present, -(insertion point + 1) otherwise.
func (h *header[K]) Find(key K) (int, error) {
	low, high := 0, h.Size()-1

	for low <= high {
		mid := int(uint(low+high) >> 1)

		midKey, err := h.GetKey(mid)
		if err != nil {
			return 0, err
		}

		switch cmp := h.codec.Compare(midKey, key); {
		case cmp < 0:
			low = mid + 1
		case cmp > 0:
			high = mid - 1
		default:
			return mid, nil
		}
	}

	return -(low + 1), nil
}

// GetKey decodes key of entry at index.
func (h *header[K]) GetKey(index int) (K, error) {
	return h.codec.Decode(h.page.Bytes()[h.keyPosition(index):])
}

// GetRawKey returns copy of stored form of the key at index.
func (h *header[K]) GetRawKey(index int) []byte {
	pos := h.keyPosition(index)
	return h.page.GetBinary(pos, h.keySizeAt(pos))
}

func (h *header[K]) keyPosition(index int) int {
	return h.entryPosition(index) + h.keyOffset
}

func (h *header[K]) keySizeAt(keyPos int) int {
	return h.codec.StoredSize(h.page.Bytes()[keyPos:])
}

func (h *header[K]) freePointer() int {
	return int(h.page.GetInt(freePointerOffset))
}

func (h *header[K]) setFreePointer(v int) {
	h.page.SetInt(freePointerOffset, int32(v))
}

func (h *header[K]) setSize(v int) {
	h.page.SetInt(sizeOffset, int32(v))
}

func (h *header[K]) positionsEnd(size int) int {
	return positionsArrayOffset + size*pager.IntSize
}

// entryPosition returns offset of entry at index, index must be in range.
func (h *header[K]) entryPosition(index int) int {
	size := h.Size()
	helpers.Assert(index >= 0 && index < size, "index %d out of range [0, %d)", index, size)
	return h.positionAt(index)
}

func (h *header[K]) positionAt(index int) int {
	return int(h.page.GetInt(positionsArrayOffset + index*pager.IntSize))
}

func (h *header[K]) setPositionAt(index, v int) {
	h.page.SetInt(positionsArrayOffset+index*pager.IntSize, int32(v))
}

// hasRoom reports whether n more bytes of entry data and the given count
// of positions slots fit into the page.
func (h *header[K]) hasRoom(n, slots int) bool {
	return h.freePointer()-n >= h.positionsEnd(h.Size()+slots)
}

// insertPosition opens positions slot at index and points it to entryPos.
func (h *header[K]) insertPosition(index, entryPos int) {
	size := h.Size()
	helpers.Assert(index >= 0 && index <= size, "index %d out of range [0, %d]", index, size)

	from := positionsArrayOffset + index*pager.IntSize
	h.page.MoveData(from, from+pager.IntSize, (size-index)*pager.IntSize)
	h.setPositionAt(index, entryPos)
	h.setSize(size + 1)
}

// removePosition closes positions slot at index.
func (h *header[K]) removePosition(index int) {
	size := h.Size()
	from := positionsArrayOffset + (index+1)*pager.IntSize
	h.page.MoveData(from, from-pager.IntSize, (size-index-1)*pager.IntSize)
	h.setSize(size - 1)
}

// allocate reserves n bytes of entry data and returns their offset.
func (h *header[K]) allocate(n int) int {
	fp := h.freePointer() - n
	helpers.Assert(fp >= h.positionsEnd(h.Size()), "allocation of %d bytes overflows page %d", n, h.page.Id)
	h.setFreePointer(fp)
	return fp
}
