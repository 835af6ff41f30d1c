// utils/random.go
package utils

import (
	"errors"
	"math/rand/v2"
)

var ErrNoItems = errors.New("no items to pick")

// PickRandom returns a uniformly chosen element of items.
func PickRandom[T any](r *rand.Rand, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrNoItems
	}
	return items[r.IntN(len(items))], nil
}

// Shuffle returns a shuffled copy; items is left untouched.
func Shuffle[T any](r *rand.Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func Clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// CeilDiv returns ceil(a/b) for non-negative a and positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
