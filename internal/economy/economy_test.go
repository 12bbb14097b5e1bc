package economy

import (
	"math"
	"strings"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizeBaseline(t *testing.T) {
	n := Normalize(Baseline())

	tests := []struct {
		name      string
		got, want float64
	}{
		{"pir", n.PIR, 18.0 / 40},
		{"ig", n.IG, 0.03 / 0.10},
		{"lr", n.LR, 0.05 / 0.08},
		{"dpr", n.DPR, 0.30 / 0.50},
		{"gs", n.GS, 0.05 / 0.20},
		{"st", n.ST, 0.05 / 0.10},
		{"ml", n.ML, 0.50},
		{"rpr", n.RPR, 3.5 / 10},
		{"hsr", n.HSR, 2.5 / 5},
	}
	for _, tt := range tests {
		if !approx(tt.got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNewSupply(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{"baseline", Baseline(), 8},
		{"no liquidity", Params{PIR: 18, IG: 3, LR: 5, ML: 0}, 0},
		{"full liquidity", Params{PIR: 5, IG: 10, LR: 3, ML: 100}, 20},
		{"negative clamps to zero", Params{PIR: 120, IG: 3, LR: 5, ML: 50}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewSupply(tt.params); got != tt.want {
				t.Errorf("NewSupply() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	want := []string{PresetBaseline, PresetCreditStimulus, PresetFiscalSubsidy}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("PresetNames() = %v, want %v", names, want)
	}
	for _, name := range names {
		p, ok := Preset(name)
		if !ok {
			t.Fatalf("Preset(%q) missing", name)
		}
		if bad := p.OutOfRange(); len(bad) > 0 {
			t.Errorf("preset %s out of range: %v", name, bad)
		}
	}
	if _, ok := Preset("nope"); ok {
		t.Error("Preset(nope) should not exist")
	}
}

func TestOutOfRange(t *testing.T) {
	p := Baseline()
	p.LR = 9
	p.HSR = 0
	bad := p.OutOfRange()
	if len(bad) != 2 {
		t.Fatalf("OutOfRange() = %v, want 2 entries", bad)
	}
	if !strings.HasPrefix(bad[0], "lr=") || !strings.HasPrefix(bad[1], "hsr=") {
		t.Errorf("OutOfRange() = %v, want lr then hsr", bad)
	}
}

func TestLogistic(t *testing.T) {
	if got := Logistic(0); got != 0.5 {
		t.Errorf("Logistic(0) = %v, want 0.5", got)
	}
	if got := Logistic(40); got <= 0.999 || got > 1 {
		t.Errorf("Logistic(40) = %v", got)
	}
	if got := Logistic(-40); got >= 0.001 || got < 0 {
		t.Errorf("Logistic(-40) = %v", got)
	}
}

func TestProbabilitiesInUnitInterval(t *testing.T) {
	c := DefaultCoefficients()
	for _, name := range PresetNames() {
		p, _ := Preset(name)
		til := Normalize(p)
		for g := Group(0); g < NumGroups; g++ {
			for _, v := range []float64{c.SellProbability(g, til), c.BuyProbability(g, til)} {
				if v <= 0 || v >= 1 {
					t.Errorf("%s/%s: probability %v outside (0, 1)", name, g, v)
				}
			}
		}
	}
}

func TestDefaultCoefficientsIsCopy(t *testing.T) {
	c := DefaultCoefficients()
	c.Beta[GroupHigh].B1 = 99
	if DefaultCoefficients().Beta[GroupHigh].B1 == 99 {
		t.Error("mutating a returned table changed the defaults")
	}
}

func TestGroup(t *testing.T) {
	if GroupHigh.MidOrLow() || !GroupMid.MidOrLow() || !GroupLow.MidOrLow() {
		t.Error("MidOrLow() misclassifies groups")
	}
	if GroupLow.String() != "low" || Group(9).String() != "unknown" {
		t.Error("unexpected group names")
	}
}
