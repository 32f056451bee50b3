// Package random holds the sampling primitives used by the task generator.
// Every function draws from the *rand.Rand it is given, so callers control
// seeding and tests stay deterministic.
package random

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// PickOne returns a uniformly chosen element of items.
func PickOne[T any](r *rand.Rand, items []T) (T, error) {
	if len(items) == 0 {
		var zero T
		return zero, &EmptyInputError{Op: "pick one"}
	}
	return items[r.IntN(len(items))], nil
}

// PickMany samples count distinct elements without replacement, in random
// order. count is clamped to [0, len(items)]. items is not modified.
func PickMany[T any](r *rand.Rand, items []T, count int) []T {
	count = max(0, min(count, len(items)))
	idx := r.Perm(len(items))
	out := make([]T, count)
	for i := range count {
		out[i] = items[idx[i]]
	}
	return out
}

// DateBetween returns a time uniformly distributed in [start, end].
func DateBetween(r *rand.Rand, start, end time.Time) (time.Time, error) {
	if end.Before(start) {
		return time.Time{}, &InvalidRangeError{Op: "date between", Min: start.Format(time.RFC3339), Max: end.Format(time.RFC3339)}
	}
	span := end.Sub(start)
	if span == 0 {
		return start, nil
	}
	return start.Add(time.Duration(r.Int64N(int64(span) + 1))), nil
}

// IntBetween returns an integer uniformly distributed in [lo, hi].
func IntBetween(r *rand.Rand, lo, hi int) (int, error) {
	if hi < lo {
		return 0, &InvalidRangeError{Op: "int between", Min: lo, Max: hi}
	}
	return lo + r.IntN(hi-lo+1), nil
}

// FloatBetween returns a float uniformly distributed in [lo, hi).
func FloatBetween(r *rand.Rand, lo, hi float64) (float64, error) {
	if hi < lo {
		return 0, &InvalidRangeError{Op: "float between", Min: lo, Max: hi}
	}
	return lo + r.Float64()*(hi-lo), nil
}

// Weighted pairs a key with its relative weight.
type Weighted[K any] struct {
	Key    K
	Weight float64
}

// WeightedPick chooses a key with probability proportional to its weight.
// The first key whose cumulative weight meets the drawn value wins.
func WeightedPick[K any](r *rand.Rand, choices []Weighted[K]) (K, error) {
	var zero K
	if len(choices) == 0 {
		return zero, &EmptyInputError{Op: "weighted pick"}
	}
	var total float64
	for _, c := range choices {
		if c.Weight < 0 {
			return zero, &InvalidWeightsError{Reason: fmt.Sprintf("negative weight %v for %v", c.Weight, c.Key)}
		}
		total += c.Weight
	}
	if total <= 0 {
		return zero, &InvalidWeightsError{Reason: "weights must sum to a positive value"}
	}

	draw := r.Float64() * total
	var cum float64
	for _, c := range choices {
		if c.Weight == 0 {
			continue
		}
		cum += c.Weight
		if draw <= cum {
			return c.Key, nil
		}
	}
	// float rounding can leave draw a hair above the final sum
	for i := len(choices) - 1; i >= 0; i-- {
		if choices[i].Weight > 0 {
			return choices[i].Key, nil
		}
	}
	return zero, &InvalidWeightsError{Reason: "no positive weight"}
}

// Chance reports true with probability p.
func Chance(r *rand.Rand, p float64) bool {
	return r.Float64() < p
}

// NewSeeded returns a PCG-backed generator for the given seed.
func NewSeeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
