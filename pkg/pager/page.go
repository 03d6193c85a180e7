package pager

import (
	"encoding/binary"

	"go-mvindex/pkg/customerrors"
	"go-mvindex/util/helpers"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// bin is the byte order used for every value stored in a page.
var bin = binary.LittleEndian

const (
	ByteSize  = 1
	ShortSize = 2
	IntSize   = 4
	LongSize  = 8

	pageMagic = uint64(0xFACB03FE)

	magicOffset       = 0
	checksumOffset    = magicOffset + LongSize
	walSegmentOffset  = checksumOffset + IntSize
	walPositionOffset = walSegmentOffset + LongSize

	// NextFreePosition is the first byte available to page formats built
	// on top of the durable header.
	NextFreePosition = walPositionOffset + LongSize
)

// LSN is the position of the last log record that touched a page.
type LSN struct {
	Segment  int64
	Position int64
}

// NewPage returns a zeroed page of given size.
func NewPage(id uint64, pageSize int) *Page {
	helpers.Assert(pageSize > NextFreePosition, "page size %d is too small", pageSize)
	return &Page{
		Id:    id,
		dirty: true,
		buf:   make([]byte, pageSize),
	}
}

// Page is a fixed size block of bytes with a durable header followed by
// a body owned by the page format stored in it. Every accessor is bounds
// checked by the slice it indexes into.
type Page struct {
	Id    uint64
	dirty bool
	buf   []byte
}

func (p *Page) IsDirty() bool {
	return p.dirty
}

func (p *Page) Dirty(v bool) {
	p.dirty = v
}

// Size returns the page capacity in bytes.
func (p *Page) Size() int {
	return len(p.buf)
}

// Bytes exposes the whole page buffer for in-place algorithms. Writers
// must call Dirty(true) themselves.
func (p *Page) Bytes() []byte {
	return p.buf
}

func (p *Page) GetByte(offset int) byte {
	return p.buf[offset]
}

func (p *Page) SetByte(offset int, v byte) int {
	p.dirty = true
	p.buf[offset] = v
	return ByteSize
}

func (p *Page) GetShort(offset int) int16 {
	return int16(bin.Uint16(p.buf[offset : offset+ShortSize]))
}

func (p *Page) SetShort(offset int, v int16) int {
	p.dirty = true
	bin.PutUint16(p.buf[offset:offset+ShortSize], uint16(v))
	return ShortSize
}

func (p *Page) GetInt(offset int) int32 {
	return int32(bin.Uint32(p.buf[offset : offset+IntSize]))
}

func (p *Page) SetInt(offset int, v int32) int {
	p.dirty = true
	bin.PutUint32(p.buf[offset:offset+IntSize], uint32(v))
	return IntSize
}

func (p *Page) GetLong(offset int) int64 {
	return int64(bin.Uint64(p.buf[offset : offset+LongSize]))
}

func (p *Page) SetLong(offset int, v int64) int {
	p.dirty = true
	bin.PutUint64(p.buf[offset:offset+LongSize], uint64(v))
	return LongSize
}

// GetBinary returns a copy of n bytes starting at offset.
func (p *Page) GetBinary(offset, n int) []byte {
	b := make([]byte, n)
	copy(b, p.buf[offset:offset+n])
	return b
}

func (p *Page) SetBinary(offset int, v []byte) int {
	p.dirty = true
	copy(p.buf[offset:offset+len(v)], v)
	return len(v)
}

// MoveData copies n bytes from one offset to another, regions may overlap.
func (p *Page) MoveData(from, to, n int) {
	if n == 0 {
		return
	}
	p.dirty = true
	copy(p.buf[to:to+n], p.buf[from:from+n])
}

func (p *Page) LSN() LSN {
	return LSN{
		Segment:  p.GetLong(walSegmentOffset),
		Position: p.GetLong(walPositionOffset),
	}
}

func (p *Page) SetLSN(lsn LSN) {
	p.SetLong(walSegmentOffset, lsn.Segment)
	p.SetLong(walPositionOffset, lsn.Position)
}

// Seal stamps magic number and checksum into the header, it is called
// right before the page is written out.
func (p *Page) Seal() {
	bin.PutUint64(p.buf[magicOffset:magicOffset+LongSize], pageMagic)
	bin.PutUint32(p.buf[checksumOffset:checksumOffset+IntSize], p.checksum())
}

// Verify checks header stamped by Seal. A page that was never written
// (all zeroes) is valid.
func (p *Page) Verify() error {
	magic := bin.Uint64(p.buf[magicOffset : magicOffset+LongSize])
	if magic == 0 && p.isZero() {
		return nil
	}
	if magic != pageMagic {
		return errors.Wrapf(customerrors.ErrInvalidPage, "bad magic %x in page %d", magic, p.Id)
	}

	stored := bin.Uint32(p.buf[checksumOffset : checksumOffset+IntSize])
	if stored != p.checksum() {
		return errors.Wrapf(customerrors.ErrChecksumMismatch, "page %d", p.Id)
	}
	return nil
}

func (p *Page) checksum() uint32 {
	sum := xxhash.Sum64(p.buf[walSegmentOffset:])
	return uint32(sum) ^ uint32(sum>>32)
}

func (p *Page) isZero() bool {
	for _, b := range p.buf {
		if b != 0 {
			return false
		}
	}
	return true
}

func (p *Page) MarshalBinary() ([]byte, error) {
	p.Seal()
	buf := make([]byte, len(p.buf))
	copy(buf, p.buf)
	return buf, nil
}

func (p *Page) UnmarshalBinary(d []byte) error {
	if p == nil {
		return errors.New("cannot unmarshal into nil page")
	}
	if len(d) != len(p.buf) {
		return errors.Wrapf(customerrors.ErrInvalidPage, "invalid binary size %d", len(d))
	}

	copy(p.buf, d)
	p.dirty = false
	return p.Verify()
}
