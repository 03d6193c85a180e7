package bucket

import (
	"go-mvindex/util/helpers"

	"golang.org/x/exp/slices"
)

// span is a byte range [start, start+size) of the entry-data area.
type span struct {
	start int
	size  int
}

func (s span) end() int {
	return s.start + s.size
}

// reclaimer knows how offsets move once a set of spans is cut out of the
// entry-data area and everything below each span slides up to close the
// hole. Data area grows downwards, so a live offset moves up by the total
// size of removed spans lying above it.
type reclaimer struct {
	spans []span
	// above[i] is the total size of spans[i:], above[len(spans)] is 0
	above []int
}

func newReclaimer(removed []span) *reclaimer {
	spans := slices.Clone(removed)
	slices.SortFunc(spans, func(a, b span) int {
		return a.start - b.start
	})

	above := make([]int, len(spans)+1)
	for i := len(spans) - 1; i >= 0; i-- {
		helpers.Assert(spans[i].size > 0, "empty span at %d", spans[i].start)
		if i+1 < len(spans) {
			helpers.Assert(
				spans[i].end() <= spans[i+1].start,
				"span [%d, %d) overlaps span at %d",
				spans[i].start, spans[i].end(), spans[i+1].start,
			)
		}
		above[i] = above[i+1] + spans[i].size
	}

	return &reclaimer{spans: spans, above: above}
}

// total returns count of reclaimed bytes.
func (r *reclaimer) total() int {
	return r.above[0]
}

// rebase returns new location of a live offset.
func (r *reclaimer) rebase(offset int) int {
	i, _ := slices.BinarySearchFunc(r.spans, offset, func(s span, off int) int {
		if s.start <= off {
			return -1
		}
		return 1
	})
	return offset + r.above[i]
}

// compact slides live bytes of buf[freePointer:] over the removed spans in
// a single top-down pass and returns the new free pointer. Every live
// segment moves up to its rebased offset, so pointer values rebased with
// the same reclaimer stay valid.
func compact(buf []byte, freePointer int, r *reclaimer) int {
	if len(r.spans) == 0 {
		return freePointer
	}

	helpers.Assert(
		r.spans[0].start >= freePointer && r.spans[len(r.spans)-1].end() <= len(buf),
		"spans are out of data area [%d, %d)", freePointer, len(buf),
	)

	for i := len(r.spans) - 1; i >= 0; i-- {
		lo := freePointer
		if i > 0 {
			lo = r.spans[i-1].end()
		}

		hi := r.spans[i].start
		if hi == lo {
			continue
		}

		dst := lo + r.above[i]
		copy(buf[dst:dst+hi-lo], buf[lo:hi])
	}

	return freePointer + r.total()
}
