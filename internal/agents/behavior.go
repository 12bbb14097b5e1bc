// Household behavior: the per-step decision procedure.
// Every step each household depreciates its home, checks the forced and
// stochastic resale rules, then makes one logistic sell and one logistic buy
// decision against the shared market.
package agents

import (
	"math"

	"github.com/talgya/housing-filter/internal/economy"
	"github.com/talgya/housing-filter/internal/entropy"
)

// Resale thresholds and probabilities.
const (
	HighForcedResaleBelow = 4.0 // High owners below this quality sell when new supply exists
	MidLowResaleChance    = 0.2
	NewUnitPreference     = 0.8 // Chance a High buyer insists on a strictly better unit
)

// TransitionKind labels a tenure transition for the event log.
type TransitionKind string

const (
	KindForcedResale     TransitionKind = "forced_resale"
	KindResale           TransitionKind = "resale"
	KindSell             TransitionKind = "sell"
	KindBuyNew           TransitionKind = "buy_new"
	KindBuySecondary     TransitionKind = "buy_secondary"
	KindBulkSell         TransitionKind = "bulk_sell"
	KindBulkBuyNew       TransitionKind = "bulk_buy_new"
	KindBulkBuySecondary TransitionKind = "bulk_buy_secondary"
)

// Transition records one household changing tenure.
type Transition struct {
	HouseholdID HouseholdID
	Group       economy.Group
	Kind        TransitionKind
	Quality     float64
}

// Context is the read-mostly state a household decides against.
type Context struct {
	Market *economy.Market
	Til    economy.Normalized
	Coef   *economy.Coefficients
	Rand   *entropy.Source
}

// Decide runs the full decision procedure for h and returns the tenure
// transitions it made, in order. An empty pool or zero supply simply means
// no purchase.
func Decide(h *Household, ctx *Context) []Transition {
	var out []Transition
	m := ctx.Market

	// Depreciation.
	if h.Owns() {
		q := math.Max(economy.MinQuality, h.OwnedQuality()*(1-economy.Depreciation))
		h.Quality = &q
	}
	h.IsNewHome = false

	// High-income forced resale when new construction is on offer.
	if h.Group == economy.GroupHigh && h.Owns() && h.OwnedQuality() < HighForcedResaleBelow && m.NewSupply > 0 {
		q := Sell(h, m)
		m.Counters.HighIncomeSwap++
		out = append(out, NewTransition(h, KindForcedResale, q))
	}

	// Mid/Low stochastic resale. The draw happens for renters too.
	if h.Group.MidOrLow() && ctx.Rand.Chance(MidLowResaleChance) && h.Owns() {
		q := Sell(h, m)
		m.Counters.UpgradeSwap++
		out = append(out, NewTransition(h, KindResale, q))
	}

	// Sell decision.
	if h.Owns() && ctx.Rand.Chance(ctx.Coef.SellProbability(h.Group, ctx.Til)) {
		q := Sell(h, m)
		m.Counters.SecondaryMarket++
		out = append(out, NewTransition(h, KindSell, q))
	}

	// Buy decision.
	if !h.Owns() && ctx.Rand.Chance(ctx.Coef.BuyProbability(h.Group, ctx.Til)) {
		if t, ok := buy(h, ctx); ok {
			out = append(out, t)
		}
	}

	AssignRentalQuality(h, ctx.Rand)
	return out
}

func buy(h *Household, ctx *Context) (Transition, bool) {
	m := ctx.Market

	if h.Group == economy.GroupHigh && m.NewSupply > 0 {
		q := chooseNewUnit(h.PriorQuality, ctx.Rand)
		m.TakeNewUnit()
		Buy(h, m, q)
		h.IsNewHome = true
		m.Counters.NewHome++
		return NewTransition(h, KindBuyNew, q), true
	}

	q, ok := m.PopOldest()
	if !ok || q <= economy.PreferredQuality {
		// A rejected unit leaves the pool all the same.
		return Transition{}, false
	}
	Buy(h, m, q)
	if h.Group == economy.GroupHigh {
		m.Counters.HighIncomeSwap++
	} else {
		m.Counters.UpgradeSwap++
	}
	m.Counters.NewHome++
	return NewTransition(h, KindBuySecondary, q), true
}

// chooseNewUnit picks from the new-unit pool. Every pooled unit is built at
// NewUnitQuality, so the preference draw is taken but never changes the unit.
func chooseNewUnit(prior float64, src *entropy.Source) float64 {
	if economy.NewUnitQuality > prior {
		src.Chance(NewUnitPreference)
	}
	return economy.NewUnitQuality
}

// AssignRentalQuality gives a Mid/Low renter its rental quality the first
// time it rents.
func AssignRentalQuality(h *Household, src *entropy.Source) {
	if h.Owns() || h.RentalQuality != nil {
		return
	}
	rq, ok := RentalQualityRange(h.Group)
	if !ok {
		return
	}
	q := src.UniformRounded(rq[0], rq[1])
	h.RentalQuality = &q
}

// Sell vacates h's home into the released pool and returns its quality.
func Sell(h *Household, m *economy.Market) float64 {
	q := h.moveOut()
	m.Release(q)
	m.TenureChanges++
	return q
}

// Buy moves h into a unit of quality q.
func Buy(h *Household, m *economy.Market, q float64) {
	h.moveIn(q)
	m.TenureChanges++
}

// NewTransition describes h changing tenure with a unit of quality q.
func NewTransition(h *Household, kind TransitionKind, q float64) Transition {
	return Transition{
		HouseholdID: h.ID,
		Group:       h.Group,
		Kind:        kind,
		Quality:     q,
	}
}
