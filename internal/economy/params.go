// Package economy provides the economic inputs, the decision coefficients and
// the shared housing market state households trade against.
package economy

import (
	"fmt"
	"math"
	"sort"
)

// Baselines each raw input is divided by to produce a dimensionless multiplier.
const (
	PIR0 = 40.0
	IG0  = 0.10
	LR0  = 0.08
	DPR0 = 0.50
	GS0  = 0.20
	ST0  = 0.10
	ML0  = 1.0
	RPR0 = 10.0
	HSR0 = 5.0
)

// Params holds the nine raw economic inputs. Percent-valued inputs (IG, LR,
// DPR, GS, ST, ML) are expressed in percent, e.g. LR 5.0 means 5%.
type Params struct {
	PIR float64 `json:"pir" yaml:"pir"` // Price-to-income ratio, 5–40
	IG  float64 `json:"ig" yaml:"ig"`   // Income growth %, -5–10
	LR  float64 `json:"lr" yaml:"lr"`   // Loan rate %, 3–8
	DPR float64 `json:"dpr" yaml:"dpr"` // Down payment ratio %, 10–50
	GS  float64 `json:"gs" yaml:"gs"`   // Government subsidy %, 0–20
	ST  float64 `json:"st" yaml:"st"`   // Secondary sale tax %, 0–10
	ML  float64 `json:"ml" yaml:"ml"`   // Market liquidity %, 0–100
	RPR float64 `json:"rpr" yaml:"rpr"` // Resale price ratio, 1–10
	HSR float64 `json:"hsr" yaml:"hsr"` // Housing stock ratio, 0.1–5
}

// Normalized is the dimensionless form of Params fed to the logistic choices.
type Normalized struct {
	PIR, IG, LR, DPR, GS, ST, ML, RPR, HSR float64
}

// Normalize converts raw inputs into ratios against the fixed baselines.
func Normalize(p Params) Normalized {
	return Normalized{
		PIR: p.PIR / PIR0,
		IG:  (p.IG / 100) / IG0,
		LR:  (p.LR / 100) / LR0,
		DPR: (p.DPR / 100) / DPR0,
		GS:  (p.GS / 100) / GS0,
		ST:  (p.ST / 100) / ST0,
		ML:  (p.ML / 100) / ML0,
		RPR: p.RPR / RPR0,
		HSR: p.HSR / HSR0,
	}
}

// NewSupply returns the number of newly built units available for a step,
// derived from the raw (un-normalized) inputs.
func NewSupply(p Params) int {
	v := (p.ML / 100) * 20 * (1 + p.IG/100) * (1 - p.PIR/100) * (1 - p.LR/100)
	return int(math.Floor(math.Max(0, v)))
}

// Range is the documented closed interval for one input.
type Range struct {
	Name     string
	Min, Max float64
}

// Ranges lists the documented input ranges in declaration order.
func Ranges() []Range {
	return []Range{
		{"pir", 5, 40},
		{"ig", -5, 10},
		{"lr", 3, 8},
		{"dpr", 10, 50},
		{"gs", 0, 20},
		{"st", 0, 10},
		{"ml", 0, 100},
		{"rpr", 1, 10},
		{"hsr", 0.1, 5},
	}
}

// Values returns the inputs in the same order as Ranges.
func (p Params) Values() []float64 {
	return []float64{p.PIR, p.IG, p.LR, p.DPR, p.GS, p.ST, p.ML, p.RPR, p.HSR}
}

// OutOfRange returns a description of every input outside its documented range.
func (p Params) OutOfRange() []string {
	var bad []string
	vals := p.Values()
	for i, r := range Ranges() {
		if vals[i] < r.Min || vals[i] > r.Max {
			bad = append(bad, fmt.Sprintf("%s=%g not in [%g, %g]", r.Name, vals[i], r.Min, r.Max))
		}
	}
	return bad
}

// Scenario presets offered by the parameter panel.
const (
	PresetBaseline       = "baseline"
	PresetCreditStimulus = "credit_stimulus"
	PresetFiscalSubsidy  = "fiscal_subsidy"
)

var presets = map[string]Params{
	PresetBaseline: {
		PIR: 18, IG: 3.0, LR: 5.0, DPR: 30, GS: 5, ST: 5, ML: 50, RPR: 3.5, HSR: 2.5,
	},
	PresetCreditStimulus: {
		PIR: 12, IG: 5.0, LR: 3.0, DPR: 15, GS: 0, ST: 3, ML: 80, RPR: 2.5, HSR: 2.5,
	},
	PresetFiscalSubsidy: {
		PIR: 10, IG: 3.0, LR: 5.0, DPR: 30, GS: 20, ST: 1, ML: 80, RPR: 3.2, HSR: 2.5,
	},
}

// Preset returns the named scenario parameters.
func Preset(name string) (Params, bool) {
	p, ok := presets[name]
	return p, ok
}

// Baseline returns the default scenario parameters.
func Baseline() Params {
	return presets[PresetBaseline]
}

// PresetNames returns all preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
