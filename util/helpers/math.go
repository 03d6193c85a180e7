package helpers

import "golang.org/x/exp/constraints"

func Min[T constraints.Ordered](numbers ...T) T {
	var min T = numbers[0]
	for _, n := range numbers {
		if n < min {
			min = n
		}
	}
	return min
}

func Max[T constraints.Ordered](numbers ...T) T {
	var max T = numbers[0]
	for _, n := range numbers {
		if n > max {
			max = n
		}
	}
	return max
}

// GetBit reports whether bit at position pos (0 is the lowest) is set.
func GetBit(b uint8, pos int) bool {
	return b&(1<<pos) != 0
}

func SetBit(b *uint8, pos int, v bool) {
	if v {
		*b |= 1 << pos
	} else {
		*b &^= 1 << pos
	}
}
