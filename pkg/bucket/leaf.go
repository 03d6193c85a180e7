package bucket

import (
	"go-mvindex/pkg/keys"
	"go-mvindex/pkg/pager"
	"go-mvindex/pkg/rid"
	"go-mvindex/util/helpers"
)

const (
	// leaf entry is [next item i32][key][inline RID]
	leafKeyOffset = pager.IntSize

	// overflow item is [next item i32][count u8][RID x count]
	itemCountOffset = pager.IntSize
	itemHeaderSize  = itemCountOffset + pager.ByteSize

	// MaxItemValues is the max count of RIDs in a single overflow item.
	MaxItemValues = 255
)

func itemSize(count int) int {
	return itemHeaderSize + count*rid.Size
}

// item is an overflow item of a leaf entry.
type item struct {
	pos   int
	count int
}

func (it item) valuePos(i int) int {
	return it.pos + itemHeaderSize + i*rid.Size
}

// Leaf is a bucket holding keys with their values.
type Leaf[K any] struct {
	header[K]
}

// NewLeaf formats page as an empty leaf bucket.
func NewLeaf[K any](page *pager.Page, codec *keys.Codec[K]) *Leaf[K] {
	b := &Leaf[K]{newHeader(page, codec, leafKeyOffset)}
	b.format(true)
	return b
}

// OpenLeaf wraps page already formatted as leaf bucket.
func OpenLeaf[K any](page *pager.Page, codec *keys.Codec[K]) *Leaf[K] {
	helpers.Assert(isLeafPage(page), "page %d is not a leaf bucket", page.Id)
	return &Leaf[K]{newHeader(page, codec, leafKeyOffset)}
}

// GetLeafEntry returns stored key and values of entry at index.
func (b *Leaf[K]) GetLeafEntry(index int) LeafEntry {
	return LeafEntry{
		Key:    b.GetRawKey(index),
		Values: b.GetValues(index),
	}
}

// GetValues returns values of entry at index in the order they were added.
func (b *Leaf[K]) GetValues(index int) []rid.RID {
	entryPos := b.entryPosition(index)
	items := b.chain(entryPos)

	count := 1
	for _, it := range items {
		count += it.count
	}

	values := make([]rid.RID, 0, count)
	values = append(values, b.getRID(b.inlinePosition(entryPos)))

	// chain starts with the newest item
	for i := len(items) - 1; i >= 0; i-- {
		for j := 0; j < items[i].count; j++ {
			values = append(values, b.getRID(items[i].valuePos(j)))
		}
	}

	return values
}

// AddNewLeafEntry inserts entry with key in stored form and its first
// value at index. It returns false, leaving the page untouched, if the
// entry doesn't fit.
func (b *Leaf[K]) AddNewLeafEntry(index int, key []byte, value rid.RID) bool {
	entrySize := pager.IntSize + len(key) + rid.Size
	if !b.hasRoom(entrySize, 1) {
		return false
	}

	pos := b.allocate(entrySize)
	b.insertPosition(index, pos)

	pos += b.page.SetInt(pos, endOfChain)
	pos += b.page.SetBinary(pos, key)
	b.setRID(pos, value)

	return true
}

// AppendNewLeafEntry adds value to the end of values of entry at index.
// It returns false if there is no room for it.
func (b *Leaf[K]) AppendNewLeafEntry(index int, value rid.RID) bool {
	return b.AppendNewLeafEntries(index, []rid.RID{value}) > 0
}

// AppendNewLeafEntries adds up to MaxItemValues of values to the end of
// values of entry at index as a single overflow item. It returns count of
// appended values, -1 if the item doesn't fit.
func (b *Leaf[K]) AppendNewLeafEntries(index int, values []rid.RID) int {
	helpers.Assert(len(values) > 0, "no values to append")

	count := helpers.Min(len(values), MaxItemValues)
	size := itemSize(count)
	if !b.hasRoom(size, 0) {
		return -1
	}

	entryPos := b.entryPosition(index)
	it := item{pos: b.allocate(size), count: count}

	b.page.SetInt(it.pos, b.page.GetInt(entryPos))
	b.page.SetByte(it.pos+itemCountOffset, uint8(count))
	for i := 0; i < count; i++ {
		b.setRID(it.valuePos(i), values[i])
	}

	b.page.SetInt(entryPos, int32(it.pos))
	return count
}

// Remove deletes entry at index with all of its values. It returns count
// of removed page parts, the entry itself and its overflow items.
func (b *Leaf[K]) Remove(index int) int {
	entryPos := b.entryPosition(index)

	removed := []span{{start: entryPos, size: b.entrySize(entryPos)}}
	for _, it := range b.chain(entryPos) {
		removed = append(removed, span{start: it.pos, size: itemSize(it.count)})
	}

	b.removePosition(index)
	b.reclaim(removed)
	return len(removed)
}

// RemoveValue deletes value from entry at index, entry left without values
// is removed. It returns false if entry doesn't hold value.
func (b *Leaf[K]) RemoveValue(index int, value rid.RID) bool {
	entryPos := b.entryPosition(index)
	inlinePos := b.inlinePosition(entryPos)
	items := b.chain(entryPos)

	if b.getRID(inlinePos) == value {
		if len(items) == 0 {
			b.Remove(index)
			return true
		}

		// the oldest overflow value takes place of the inline one
		oldest := len(items) - 1
		b.setRID(inlinePos, b.getRID(items[oldest].valuePos(0)))
		b.removeFromItem(entryPos, items, oldest, 0)
		return true
	}

	for i := len(items) - 1; i >= 0; i-- {
		for j := 0; j < items[i].count; j++ {
			if b.getRID(items[i].valuePos(j)) == value {
				b.removeFromItem(entryPos, items, i, j)
				return true
			}
		}
	}

	return false
}

// CutSingleEntry removes the first amount values of the only entry of the
// bucket keeping the rest.
func (b *Leaf[K]) CutSingleEntry(amount int) {
	helpers.Assert(b.Size() == 1, "bucket holds %d entries, expected single", b.Size())

	entryPos := b.entryPosition(0)
	items := b.chain(entryPos)

	total := 1
	for _, it := range items {
		total += it.count
	}
	helpers.Assert(amount > 0 && amount < total, "can't cut %d of %d values", amount, total)

	// value at position amount becomes the inline one
	k := amount - 1
	for i := len(items) - 1; i >= 0; i-- {
		if k < items[i].count {
			b.setRID(b.inlinePosition(entryPos), b.getRID(items[i].valuePos(k)))
			break
		}
		k -= items[i].count
	}

	// inline value is already replaced, the rest of amount comes out of
	// the oldest items
	var removed []span
	drop := amount
	i := len(items) - 1
	for ; i >= 0 && drop >= items[i].count; i-- {
		removed = append(removed, span{start: items[i].pos, size: itemSize(items[i].count)})
		drop -= items[i].count
	}

	if i < 0 {
		b.page.SetInt(entryPos, endOfChain)
	} else {
		b.page.SetInt(items[i].pos, endOfChain)
		if drop > 0 {
			b.page.SetByte(items[i].pos+itemCountOffset, uint8(items[i].count-drop))
			removed = append(removed, span{start: items[i].valuePos(0), size: drop * rid.Size})
		}
	}

	b.reclaim(removed)
}

// Shrink keeps only first newSize entries rebuilding the entry data.
func (b *Leaf[K]) Shrink(newSize int) {
	helpers.Assert(newSize >= 0 && newSize <= b.Size(), "invalid new size %d", newSize)

	entries := make([]LeafEntry, newSize)
	for i := range entries {
		entries[i] = b.GetLeafEntry(i)
	}

	b.setFreePointer(b.page.Size())
	b.setSize(0)

	helpers.Assert(b.AddAll(entries), "page %d can't hold its own entries", b.page.Id)
}

// AddAll appends entries after the existing ones, caller keeps keys
// ordered. It returns false, leaving the page untouched, if entries don't
// fit.
func (b *Leaf[K]) AddAll(entries []LeafEntry) bool {
	required := 0
	for _, e := range entries {
		helpers.Assert(len(e.Values) > 0, "entry without values")

		required += pager.IntSize + pager.IntSize + len(e.Key) + rid.Size
		for rest := len(e.Values) - 1; rest > 0; rest -= MaxItemValues {
			required += itemSize(helpers.Min(rest, MaxItemValues))
		}
	}

	if b.freePointer()-required < b.positionsEnd(b.Size()) {
		return false
	}

	for _, e := range entries {
		index := b.Size()
		helpers.Assert(b.AddNewLeafEntry(index, e.Key, e.Values[0]), "no room for entry %d", index)

		for added := 1; added < len(e.Values); {
			n := b.AppendNewLeafEntries(index, e.Values[added:])
			helpers.Assert(n > 0, "no room for values of entry %d", index)
			added += n
		}
	}

	return true
}

// chain returns overflow items of entry starting with the newest one.
func (b *Leaf[K]) chain(entryPos int) []item {
	var items []item
	for next := int(b.page.GetInt(entryPos)); next > 0; next = int(b.page.GetInt(next)) {
		helpers.Assert(next < b.page.Size(), "item offset %d out of page %d", next, b.page.Id)
		items = append(items, item{
			pos:   next,
			count: int(b.page.GetByte(next + itemCountOffset)),
		})
	}
	return items
}

// removeFromItem removes j-th value of i-th item of the chain.
func (b *Leaf[K]) removeFromItem(entryPos int, items []item, i, j int) {
	it := items[i]

	if it.count == 1 {
		prev := entryPos
		if i > 0 {
			prev = items[i-1].pos
		}
		b.page.SetInt(prev, b.page.GetInt(it.pos))
		b.reclaim([]span{{start: it.pos, size: itemSize(1)}})
		return
	}

	b.page.SetByte(it.pos+itemCountOffset, uint8(it.count-1))
	b.reclaim([]span{{start: it.valuePos(j), size: rid.Size}})
}

// reclaim returns removed spans of entry data to free space. Spans must
// be unreachable from positions array and from chains of live entries.
func (b *Leaf[K]) reclaim(removed []span) {
	if len(removed) == 0 {
		return
	}

	r := newReclaimer(removed)

	// pointers are rebased in place before any byte moves, chains are
	// walked by their old offsets
	for i := 0; i < b.Size(); i++ {
		entryPos := b.positionAt(i)
		for at := entryPos; ; {
			next := int(b.page.GetInt(at))
			if next <= 0 {
				break
			}
			b.page.SetInt(at, int32(r.rebase(next)))
			at = next
		}
		b.setPositionAt(i, r.rebase(entryPos))
	}

	b.setFreePointer(compact(b.page.Bytes(), b.freePointer(), r))
	b.page.Dirty(true)
}

func (b *Leaf[K]) entrySize(entryPos int) int {
	return pager.IntSize + b.keySizeAt(entryPos+leafKeyOffset) + rid.Size
}

func (b *Leaf[K]) inlinePosition(entryPos int) int {
	keyPos := entryPos + leafKeyOffset
	return keyPos + b.keySizeAt(keyPos)
}

func (b *Leaf[K]) getRID(pos int) rid.RID {
	return rid.Read(b.page.Bytes()[pos : pos+rid.Size])
}

func (b *Leaf[K]) setRID(pos int, v rid.RID) {
	v.Put(b.page.Bytes()[pos : pos+rid.Size])
	b.page.Dirty(true)
}
