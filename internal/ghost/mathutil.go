package ghost

import (
	"math/rand"

	"golang.org/x/exp/constraints"
)

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNegative[T constraints.Float](v T) T {
	if v < 0 {
		return 0
	}
	return v
}

// uniform returns a value in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// sumUniform adds n uniform draws, giving a roughly bell shaped spread.
func sumUniform(rng *rand.Rand, n int, lo, hi float64) float64 {
	total := 0.0
	for i := 0; i < n; i++ {
		total += uniform(rng, lo, hi)
	}
	return total
}
