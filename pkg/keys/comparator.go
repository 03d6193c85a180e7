package keys

import (
	"bytes"

	"golang.org/x/exp/constraints"
)

// Comparator returns negative, zero or positive when a is less than,
// equal to or greater than b.
type Comparator[K any] func(a, b K) int

func OrderedComparator[K constraints.Ordered]() Comparator[K] {
	return func(a, b K) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
}

func BytesComparator() Comparator[[]byte] {
	return bytes.Compare
}
