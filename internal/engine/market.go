// Market clearing: the step-level passes that run across all households
// after every household has decided.
package engine

import (
	"github.com/talgya/housing-filter/internal/agents"
	"github.com/talgya/housing-filter/internal/economy"
)

// Bulk pass thresholds and probabilities.
const (
	HighSwapBelow      = 4.5 // High owners below this quality trade up when new supply exists
	HighBulkSellChance = 0.8
	MidLowSellChance   = 0.3
	BulkBuyChance      = 0.8
	NewUnitMinQuality  = 4.5
	NewUnitMaxQuality  = 5.0
)

// QualityCeiling is the highest released-unit quality a group will buy in
// the bulk buy pass. High buyers only take new construction.
func QualityCeiling(g economy.Group) float64 {
	switch g {
	case economy.GroupMid:
		return 4.5
	case economy.GroupLow:
		return 3.0
	default:
		return 0
	}
}

// clearMarket runs the clearing phases in order: accumulate rentals, reset
// the step counters and pool, recompute supply, then the high-income, bulk
// sell and bulk buy passes.
func (s *Simulation) clearMarket(step int) {
	m := s.Market

	m.RentalTransactions += s.countMidLowRenters()
	m.ResetStep()
	m.Recompute(s.Params)

	s.highIncomePass(step)
	s.bulkSellPass(step)
	s.bulkBuyPass(step)
}

func (s *Simulation) countMidLowRenters() int {
	n := 0
	for _, h := range s.Households {
		if !h.Owns() && h.Group.MidOrLow() {
			n++
		}
	}
	return n
}

// highIncomePass moves High owners below HighSwapBelow into new construction
// while supply lasts. It overlaps the household-level high-income rule and
// both phases count toward the step's transactions.
func (s *Simulation) highIncomePass(step int) {
	m := s.Market
	for _, h := range s.Households {
		if h.Group != economy.GroupHigh {
			continue
		}
		if h.Owns() && h.OwnedQuality() < HighSwapBelow && m.NewSupply > 0 {
			q := agents.Sell(h, m)
			m.Counters.HighIncomeSwap++
			s.record(step, PhaseHighIncome, agents.NewTransition(h, agents.KindForcedResale, q))
		}
		if !h.Owns() && m.NewSupply > 0 {
			q := s.Rand.UniformRounded(NewUnitMinQuality, NewUnitMaxQuality)
			m.TakeNewUnit()
			agents.Buy(h, m, q)
			h.IsNewHome = true
			m.Counters.NewHome++
			s.record(step, PhaseHighIncome, agents.NewTransition(h, agents.KindBulkBuyNew, q))
		}
	}
}

// bulkSellPass releases owned units in a liquidity wave.
func (s *Simulation) bulkSellPass(step int) {
	m := s.Market
	for _, h := range s.Households {
		if !h.Owns() {
			continue
		}
		switch {
		case h.Group == economy.GroupHigh:
			if s.Rand.Chance(HighBulkSellChance) {
				q := agents.Sell(h, m)
				m.Counters.HighIncomeSwap++
				s.record(step, PhaseBulkSell, agents.NewTransition(h, agents.KindBulkSell, q))
			}
		case h.Group.MidOrLow():
			if s.Rand.Chance(MidLowSellChance) {
				q := agents.Sell(h, m)
				m.Counters.UpgradeSwap++
				s.record(step, PhaseBulkSell, agents.NewTransition(h, agents.KindBulkSell, q))
			}
		}
	}
}

// bulkBuyPass lets renters buy: High from new supply, Mid/Low the first
// released unit under their quality ceiling.
func (s *Simulation) bulkBuyPass(step int) {
	m := s.Market
	for _, h := range s.Households {
		if h.Owns() || !s.Rand.Chance(BulkBuyChance) {
			continue
		}
		if h.Group == economy.GroupHigh {
			if !m.TakeNewUnit() {
				continue
			}
			q := s.Rand.UniformRounded(NewUnitMinQuality, NewUnitMaxQuality)
			agents.Buy(h, m, q)
			m.Counters.NewHome++
			s.record(step, PhaseBulkBuy, agents.NewTransition(h, agents.KindBulkBuyNew, q))
			continue
		}
		q, ok := m.TakeFirstAtMost(QualityCeiling(h.Group))
		if !ok {
			continue
		}
		agents.Buy(h, m, q)
		m.Counters.SecondaryMarket++
		s.record(step, PhaseBulkBuy, agents.NewTransition(h, agents.KindBulkBuySecondary, q))
	}
}
