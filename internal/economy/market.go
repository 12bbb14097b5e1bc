package economy

// Housing quality scale and market constants.
const (
	MinQuality       = 1.0 // Depreciation floor and lowest ownable quality
	MaxQuality       = 5.0
	NewUnitQuality   = 5.0 // Q0: quality of every unit in the synthetic new-unit pool
	PreferredQuality = 1.0 // Q_pref: released units must be strictly better
	Depreciation     = 0.1 // δ per step
	InitialNewSupply = 10
)

// Counters are the per-step transaction tallies reset by the clearing phase.
type Counters struct {
	NewHome         int `json:"new_home"`
	SecondaryMarket int `json:"secondary_market"`
	HighIncomeSwap  int `json:"high_income_swap"`
	UpgradeSwap     int `json:"upgrade_swap"`
}

// Market is the shared housing state contended by every household within a
// step, in activation order.
type Market struct {
	NewSupply int       // Units of new construction still available this step
	Released  []float64 // Secondary-market pool, oldest first
	Counters  Counters

	RentalTransactions int // Cumulative Mid/Low renter-steps
	TenureChanges      int // Owner↔Renter transitions this step, both phases
	SupplyRecomputed   int // newSupply as recomputed by the latest clearing
}

// NewMarket creates a market with the initial stock of new units.
func NewMarket() *Market {
	return &Market{NewSupply: InitialNewSupply}
}

// Release pushes a previously owned unit onto the secondary-market pool.
func (m *Market) Release(quality float64) {
	m.Released = append(m.Released, quality)
}

// PopOldest removes and returns the oldest released unit.
func (m *Market) PopOldest() (float64, bool) {
	if len(m.Released) == 0 {
		return 0, false
	}
	q := m.Released[0]
	m.Released = m.Released[1:]
	return q, true
}

// TakeFirstAtMost removes and returns the first released unit whose quality
// does not exceed ceiling. Queue order of the remaining units is preserved.
func (m *Market) TakeFirstAtMost(ceiling float64) (float64, bool) {
	for i, q := range m.Released {
		if q <= ceiling {
			m.Released = append(m.Released[:i], m.Released[i+1:]...)
			return q, true
		}
	}
	return 0, false
}

// TakeNewUnit consumes one unit of new supply. Reports false when none is left.
func (m *Market) TakeNewUnit() bool {
	if m.NewSupply <= 0 {
		return false
	}
	m.NewSupply--
	return true
}

// ResetStep zeroes the per-step counters and clears the released pool.
// RentalTransactions is cumulative and survives the reset.
func (m *Market) ResetStep() {
	m.Counters = Counters{}
	m.Released = m.Released[:0]
}

// Recompute sets the new supply from the current inputs. The recompute is
// unconditional: a zero result stays zero.
func (m *Market) Recompute(p Params) int {
	m.NewSupply = NewSupply(p)
	m.SupplyRecomputed = m.NewSupply
	return m.NewSupply
}
