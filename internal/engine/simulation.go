// Simulation ties together the household arena, the shared market and the
// run's random source, and advances them one step at a time.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/housing-filter/internal/agents"
	"github.com/talgya/housing-filter/internal/economy"
	"github.com/talgya/housing-filter/internal/entropy"
)

// MaxEvents caps the retained event log.
const MaxEvents = 5000

// Options configures a new simulation. Inputs are assumed valid; range checks
// belong to the caller (see config.Validate).
type Options struct {
	Seed       int64
	Households int
	Params     economy.Params
	Warmup     bool // Run one unrecorded step during construction
}

// Simulation holds the complete market state.
type Simulation struct {
	// Households is an append-only arena: Households[i].ID == i.
	Households []*agents.Household
	Market     *economy.Market
	Params     economy.Params
	Til        economy.Normalized
	Coef       economy.Coefficients

	Spawner *agents.Spawner
	Rand    *entropy.Source

	StepCount  int       // Steps advanced so far, warm-up included
	History    []Metrics // One record per recorded step
	Events     []Event   // Recent events, capped at MaxEvents
	StepEvents []Event   // Events of the latest step only

	order []int
}

func newSimulation(opts Options) *Simulation {
	src := entropy.New(opts.Seed)
	return &Simulation{
		Market:  economy.NewMarket(),
		Params:  opts.Params,
		Til:     economy.Normalize(opts.Params),
		Coef:    economy.DefaultCoefficients(),
		Spawner: agents.NewSpawner(src),
		Rand:    src,
	}
}

// New creates a simulation with the initial population.
func New(opts Options) *Simulation {
	s := newSimulation(opts)
	s.Households = s.Spawner.SpawnPopulation(opts.Households, 0)

	slog.Debug("simulation created",
		"seed", opts.Seed,
		"households", len(s.Households),
		"new_supply", s.Market.NewSupply,
	)

	if opts.Warmup {
		s.advance()
	}
	return s
}

// Restore rebuilds a simulation around a stored household arena as of step.
// opts.Households is ignored. The market starts over with InitialNewSupply
// and an empty pool; arrivals continue the ID sequence after the arena.
func Restore(opts Options, households []*agents.Household, step int) (*Simulation, error) {
	s := newSimulation(opts)
	s.Households = households
	s.StepCount = step
	s.Spawner.SetNextID(agents.HouseholdID(len(households)))

	if err := s.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return s, nil
}

// Get returns the household with the given ID, or nil.
func (s *Simulation) Get(id agents.HouseholdID) *agents.Household {
	if uint64(id) >= uint64(len(s.Households)) {
		return nil
	}
	return s.Households[id]
}

// Step advances one full step (household pass, market clearing, growth) and
// returns the step's metrics record.
func (s *Simulation) Step() Metrics {
	m := s.advance()
	s.History = append(s.History, m)
	return m
}

func (s *Simulation) advance() Metrics {
	s.StepCount++
	step := s.StepCount
	s.StepEvents = nil
	s.Market.TenureChanges = 0

	s.runHouseholds(step)
	s.clearMarket(step)
	growth := s.growPopulation(step)

	m := s.collect(step, growth)
	s.trimEvents()

	slog.Debug("step complete",
		"step", step,
		"population", m.Population,
		"new_home", m.NewHome,
		"secondary_market", m.SecondaryMarket,
		"supply", m.Supply,
		"demand", m.Demand,
	)
	return m
}

// runHouseholds lets every existing household decide once, in a fresh random
// activation order.
func (s *Simulation) runHouseholds(step int) {
	n := len(s.Households)
	s.order = s.order[:0]
	for i := 0; i < n; i++ {
		s.order = append(s.order, i)
	}
	s.Rand.Shuffle(n, func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})

	ctx := &agents.Context{
		Market: s.Market,
		Til:    s.Til,
		Coef:   &s.Coef,
		Rand:   s.Rand,
	}
	for _, idx := range s.order {
		for _, t := range agents.Decide(s.Households[idx], ctx) {
			s.record(step, PhaseHouseholds, t)
		}
	}
}

// CheckInvariants verifies the arena. Any error is a programming fault.
func (s *Simulation) CheckInvariants() error {
	for i, h := range s.Households {
		if h == nil {
			return fmt.Errorf("arena slot %d is empty", i)
		}
		if h.ID != agents.HouseholdID(i) {
			return fmt.Errorf("arena slot %d holds household %d", i, h.ID)
		}
		if err := h.Validate(); err != nil {
			return err
		}
	}
	if s.Market.NewSupply < 0 {
		return fmt.Errorf("negative new supply %d", s.Market.NewSupply)
	}
	return nil
}

func (s *Simulation) trimEvents() {
	if len(s.Events) > MaxEvents {
		s.Events = append(s.Events[:0], s.Events[len(s.Events)-MaxEvents:]...)
	}
}
