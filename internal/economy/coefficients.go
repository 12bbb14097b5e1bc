package economy

import "math"

// Group is a household's income stratum. Assigned at creation, never changed.
type Group uint8

const (
	GroupHigh Group = iota
	GroupMid
	GroupLow
)

// NumGroups is the number of income groups.
const NumGroups = 3

// GroupWeights are the creation weights for High, Mid and Low.
var GroupWeights = []float64{0.2, 0.5, 0.3}

// String returns the group name used in logs and reports.
func (g Group) String() string {
	switch g {
	case GroupHigh:
		return "high"
	case GroupMid:
		return "mid"
	case GroupLow:
		return "low"
	default:
		return "unknown"
	}
}

// MidOrLow reports whether the group trades on the secondary market.
func (g Group) MidOrLow() bool {
	return g == GroupMid || g == GroupLow
}

// SellCoef weights the sell decision: ML, RPR, ST (negative), HSR.
type SellCoef struct {
	B1, B2, B3, B4 float64
}

// BuyCoef weights the buy decision: PIR (neg), IG, LR (neg), DPR (neg), GS.
type BuyCoef struct {
	A1, A2, A3, A4, A5 float64
}

// Coefficients holds the group-indexed decision tables.
type Coefficients struct {
	Beta  [NumGroups]SellCoef
	Alpha [NumGroups]BuyCoef
}

var defaultCoefficients = Coefficients{
	Beta: [NumGroups]SellCoef{
		GroupHigh: {1.5, 1.2, 0.5, 1.0},
		GroupMid:  {1.2, 1.0, 1.0, 1.0},
		GroupLow:  {1.0, 0.8, 1.5, 0.8},
	},
	Alpha: [NumGroups]BuyCoef{
		GroupHigh: {0.5, 0.8, 0.3, 0.3, 1.0},
		GroupMid:  {1.0, 1.2, 1.0, 1.0, 0.8},
		GroupLow:  {0.8, 1.5, 1.5, 1.5, 2.0},
	},
}

// DefaultCoefficients returns the calibrated decision tables. The value is a
// copy; callers cannot alter the shared defaults.
func DefaultCoefficients() Coefficients {
	return defaultCoefficients
}

// Logistic is σ(z) = 1/(1+e^−z).
func Logistic(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// SellProbability returns the logistic sell probability for group g.
func (c *Coefficients) SellProbability(g Group, til Normalized) float64 {
	b := c.Beta[g]
	return Logistic(b.B1*til.ML + b.B2*til.RPR - b.B3*til.ST + b.B4*til.HSR)
}

// BuyProbability returns the logistic buy probability for group g.
func (c *Coefficients) BuyProbability(g Group, til Normalized) float64 {
	a := c.Alpha[g]
	return Logistic(-a.A1*til.PIR + a.A2*til.IG - a.A3*til.LR - a.A4*til.DPR + a.A5*til.GS)
}
