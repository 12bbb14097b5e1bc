// Population growth: new households arrive every step. Households are never
// removed, so the arena only grows.
package engine

import (
	"github.com/talgya/housing-filter/internal/agents"
)

// Arrivals per step, both ends inclusive.
const (
	MinArrivals = 5
	MaxArrivals = 10
)

// growPopulation appends this step's arrivals and returns how many came.
func (s *Simulation) growPopulation(step int) int {
	n := s.Rand.IntRange(MinArrivals, MaxArrivals)
	for _, h := range s.Spawner.SpawnPopulation(n, step) {
		s.addHousehold(h)
		s.record(step, PhaseGrowth, agents.NewTransition(h, KindSpawn, h.OwnedQuality()))
	}
	return n
}

// addHousehold appends h to the arena. The spawner issues IDs in arena order.
func (s *Simulation) addHousehold(h *agents.Household) {
	s.Households = append(s.Households, h)
}
