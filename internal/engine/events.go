package engine

import (
	"github.com/talgya/housing-filter/internal/agents"
	"github.com/talgya/housing-filter/internal/economy"
)

// Phase names one stage of the step state machine.
type Phase string

const (
	PhaseHouseholds Phase = "households"
	PhaseHighIncome Phase = "high_income"
	PhaseBulkSell   Phase = "bulk_sell"
	PhaseBulkBuy    Phase = "bulk_buy"
	PhaseGrowth     Phase = "growth"
)

// Event is one tenure transition or arrival.
type Event struct {
	Step        int                   `json:"step" db:"step"`
	Phase       Phase                 `json:"phase" db:"phase"`
	HouseholdID agents.HouseholdID    `json:"household_id" db:"household_id"`
	Group       economy.Group         `json:"group" db:"grp"`
	Kind        agents.TransitionKind `json:"kind" db:"kind"`
	Quality     float64               `json:"quality" db:"quality"`
}

// KindSpawn marks a household arriving through population growth.
const KindSpawn agents.TransitionKind = "spawn"

func (s *Simulation) record(step int, phase Phase, t agents.Transition) {
	e := Event{
		Step:        step,
		Phase:       phase,
		HouseholdID: t.HouseholdID,
		Group:       t.Group,
		Kind:        t.Kind,
		Quality:     t.Quality,
	}
	s.Events = append(s.Events, e)
	s.StepEvents = append(s.StepEvents, e)
}
