// Household spawning: the initial population and per-step arrivals.
package agents

import (
	"math"

	"github.com/talgya/housing-filter/internal/economy"
	"github.com/talgya/housing-filter/internal/entropy"
)

// Spawner creates households. IDs are issued from a monotonic counter so
// collisions cannot occur.
type Spawner struct {
	src    *entropy.Source
	nextID HouseholdID
}

// NewSpawner creates a spawner drawing from the run's shared source.
func NewSpawner(src *entropy.Source) *Spawner {
	return &Spawner{
		src:    src,
		nextID: 0,
	}
}

// NextID returns the ID the next spawned household will receive.
func (s *Spawner) NextID() HouseholdID {
	return s.nextID
}

// SetNextID sets the next ID to be issued, for arenas restored from storage.
func (s *Spawner) SetNextID(id HouseholdID) {
	s.nextID = id
}

// SpawnPopulation creates count households born at step.
func (s *Spawner) SpawnPopulation(count int, step int) []*Household {
	households := make([]*Household, 0, count)
	for i := 0; i < count; i++ {
		households = append(households, s.spawnOne(step))
	}
	return households
}

func (s *Spawner) spawnOne(step int) *Household {
	id := s.nextID
	s.nextID++

	group := economy.Group(s.src.Weighted(economy.GroupWeights))
	h := &Household{
		ID:       id,
		Group:    group,
		Tenure:   TenureRenter,
		BornStep: step,
	}

	if s.startsAsOwner(group) {
		h.moveIn(s.initialQuality(group))
		return h
	}

	if rq, ok := RentalQualityRange(group); ok {
		q := s.src.UniformRounded(rq[0], rq[1])
		h.RentalQuality = &q
	}
	return h
}

// startsAsOwner decides initial tenure: High always own, Mid 80%, Low 60%.
func (s *Spawner) startsAsOwner(g economy.Group) bool {
	switch g {
	case economy.GroupHigh:
		return true
	case economy.GroupMid:
		return s.src.Chance(0.8)
	default:
		return s.src.Chance(0.6)
	}
}

// initialQuality draws the starting quality of an owned unit. Low-income
// draws below the depreciation floor are lifted to it.
func (s *Spawner) initialQuality(g economy.Group) float64 {
	var q float64
	switch g {
	case economy.GroupHigh:
		q = s.src.UniformRounded(4, 5)
	case economy.GroupMid:
		q = s.src.UniformRounded(2.5, 4)
	default:
		q = s.src.UniformRounded(0.5, 3)
	}
	return math.Max(economy.MinQuality, q)
}

// RentalQualityRange returns the rental quality interval for renters of g.
// High-income renters have none.
func RentalQualityRange(g economy.Group) ([2]float64, bool) {
	switch g {
	case economy.GroupMid:
		return [2]float64{2.5, 5}, true
	case economy.GroupLow:
		return [2]float64{0.5, 3}, true
	default:
		return [2]float64{}, false
	}
}
