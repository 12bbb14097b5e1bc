package entropytest

import "testing"

func TestSequence(t *testing.T) {
	src := New(0.75, 0, 0.19, 0.5)
	for i, want := range []float64{0, 0.19, 0.5, 0.75, 0.75} {
		if got := src.Float(); got != want {
			t.Errorf("draw %d = %v, want %v", i, got, want)
		}
	}
	if !New(0.99, 0.19).Chance(0.2) {
		t.Error("0.19 should fall below 0.2")
	}
}
