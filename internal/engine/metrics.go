// Metrics collection: the read-only per-step record handed to reporting.
package engine

import (
	"gonum.org/v1/gonum/stat"

	"github.com/talgya/housing-filter/internal/economy"
)

// LowQualityBelow marks an owned unit as low quality.
const LowQualityBelow = 2.5

// Metrics is the per-step record. It is the only contract with reporting.
type Metrics struct {
	Step       int `json:"step"`
	Population int `json:"population"`
	PopHigh    int `json:"pop_high"`
	PopMid     int `json:"pop_mid"`
	PopLow     int `json:"pop_low"`
	Growth     int `json:"growth"`

	// Transactions of the clearing phase (counters reset mid-step).
	NewHome            int `json:"new_home"`
	SecondaryMarket    int `json:"secondary_market"`
	HighIncomeSwap     int `json:"high_income_swap"`
	UpgradeSwap        int `json:"upgrade_swap"`
	RentalTransactions int `json:"rental_transactions"` // Cumulative
	RentalCount        int `json:"rental_count"`        // Mid/Low renters at step end
	TenureChanges      int `json:"tenure_changes"`

	// Housing stock.
	AvgQuality       float64 `json:"avg_quality"`
	QualitySD        float64 `json:"quality_sd"` // Sample deviation, 0 below two owners
	LowQualityRatio  float64 `json:"low_quality_ratio"`
	SupplyRecomputed int     `json:"supply_recomputed"`
	NewSupplyLeft    int     `json:"new_supply_left"`
	Supply           int     `json:"supply"` // NewSupplyLeft + SecondaryMarket
	Demand           int     `json:"demand"` // Renters of any group

	// Tenure breakdown.
	OwnerHigh  int `json:"owner_high"`
	RenterHigh int `json:"renter_high"`
	OwnerMid   int `json:"owner_mid"`
	RenterMid  int `json:"renter_mid"`
	OwnerLow   int `json:"owner_low"`
	RenterLow  int `json:"renter_low"`
}

func (s *Simulation) collect(step, growth int) Metrics {
	m := s.Market
	out := Metrics{
		Step:               step,
		Population:         len(s.Households),
		Growth:             growth,
		NewHome:            m.Counters.NewHome,
		SecondaryMarket:    m.Counters.SecondaryMarket,
		HighIncomeSwap:     m.Counters.HighIncomeSwap,
		UpgradeSwap:        m.Counters.UpgradeSwap,
		RentalTransactions: m.RentalTransactions,
		TenureChanges:      m.TenureChanges,
		SupplyRecomputed:   m.SupplyRecomputed,
		NewSupplyLeft:      m.NewSupply,
	}

	var qualities []float64
	lowQuality := 0
	for _, h := range s.Households {
		own := h.Owns()
		switch h.Group {
		case economy.GroupHigh:
			out.PopHigh++
			if own {
				out.OwnerHigh++
			} else {
				out.RenterHigh++
			}
		case economy.GroupMid:
			out.PopMid++
			if own {
				out.OwnerMid++
			} else {
				out.RenterMid++
			}
		case economy.GroupLow:
			out.PopLow++
			if own {
				out.OwnerLow++
			} else {
				out.RenterLow++
			}
		}
		if !own {
			out.Demand++
			continue
		}
		q := h.OwnedQuality()
		qualities = append(qualities, q)
		if q < LowQualityBelow {
			lowQuality++
		}
	}

	out.RentalCount = out.RenterMid + out.RenterLow
	out.Supply = out.NewSupplyLeft + out.SecondaryMarket
	if n := len(qualities); n > 0 {
		out.AvgQuality = stat.Mean(qualities, nil)
		out.LowQualityRatio = float64(lowQuality) / float64(n)
		if n > 1 {
			out.QualitySD = stat.StdDev(qualities, nil)
		}
	}
	return out
}

// GroupShare is one income group's tenure split, as a share of the whole
// population.
type GroupShare struct {
	Group      string  `json:"group"`
	Households int     `json:"households"`
	Owners     int     `json:"owners"`
	Renters    int     `json:"renters"`
	OwnerPct   float64 `json:"owner_pct"`
	RenterPct  float64 `json:"renter_pct"`
}

// Snapshot is the on-demand ownership summary used for narrative reporting.
type Snapshot struct {
	Step       int                           `json:"step"`
	Population int                           `json:"population"`
	Groups     [economy.NumGroups]GroupShare `json:"groups"`
}

// Snapshot summarizes ownership and renting per group at the current step.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Step:       s.StepCount,
		Population: len(s.Households),
	}
	for g := economy.Group(0); g < economy.NumGroups; g++ {
		snap.Groups[g].Group = g.String()
	}
	for _, h := range s.Households {
		gs := &snap.Groups[h.Group]
		gs.Households++
		if h.Owns() {
			gs.Owners++
		} else {
			gs.Renters++
		}
	}
	if snap.Population > 0 {
		total := float64(snap.Population)
		for i := range snap.Groups {
			snap.Groups[i].OwnerPct = 100 * float64(snap.Groups[i].Owners) / total
			snap.Groups[i].RenterPct = 100 * float64(snap.Groups[i].Renters) / total
		}
	}
	return snap
}
