// Package entropytest provides scripted random streams for tests that need
// specific draws to land above or below a probability.
package entropytest

import "github.com/talgya/housing-filter/internal/entropy"

// Sequence is a rand.Source whose Float64 draws are Draws in order, then Rest
// forever. Every value must be in [0, 1).
type Sequence struct {
	Draws []float64
	Rest  float64

	next int
}

// Int63 returns the next scripted draw scaled to the generator's range.
func (s *Sequence) Int63() int64 {
	f := s.Rest
	if s.next < len(s.Draws) {
		f = s.Draws[s.next]
		s.next++
	}
	return int64(f * (1 << 63))
}

// Seed is a no-op.
func (s *Sequence) Seed(int64) {}

// Used reports how many scripted draws have been consumed.
func (s *Sequence) Used() int {
	return s.next
}

// New returns an entropy.Source that yields draws, then rest.
func New(rest float64, draws ...float64) *entropy.Source {
	return entropy.NewFromSource(&Sequence{Draws: draws, Rest: rest})
}
