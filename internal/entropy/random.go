// Package entropy provides the single seeded random source every stochastic
// draw in a run goes through. One Source per run keeps the draw sequence,
// and therefore the whole metrics series, reproducible from the seed.
package entropy

import (
	"math"
	"math/rand"
)

// Source wraps a seeded generator with the draw helpers the simulation needs.
type Source struct {
	rng  *rand.Rand
	seed int64
}

// New creates a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// NewFromSource wraps an existing generator source. Seed reports 0.
func NewFromSource(src rand.Source) *Source {
	return &Source{rng: rand.New(src)}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Float returns a float64 in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Chance reports whether a draw falls below p.
func (s *Source) Chance(p float64) bool {
	return s.rng.Float64() < p
}

// Uniform returns a float64 in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// UniformRounded returns Uniform(lo, hi) rounded to two decimals.
func (s *Source) UniformRounded(lo, hi float64) float64 {
	return Round2(s.Uniform(lo, hi))
}

// IntRange returns an int in [lo, hi], both ends inclusive.
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Shuffle permutes n elements in place using swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Weighted returns an index drawn with probability proportional to weights.
// Falls back to the last index when rounding leaves the draw unassigned.
func (s *Source) Weighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := s.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
