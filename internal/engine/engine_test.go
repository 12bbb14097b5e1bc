package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/talgya/housing-filter/internal/agents"
	"github.com/talgya/housing-filter/internal/economy"
)

func newBaseline(seed int64, households int) *Simulation {
	return New(Options{Seed: seed, Households: households, Params: economy.Baseline()})
}

func TestNewSimulation(t *testing.T) {
	sim := newBaseline(42, 50)
	if len(sim.Households) != 50 {
		t.Fatalf("population = %d, want 50", len(sim.Households))
	}
	if sim.Market.NewSupply != economy.InitialNewSupply {
		t.Errorf("NewSupply = %d, want %d", sim.Market.NewSupply, economy.InitialNewSupply)
	}
	if sim.StepCount != 0 || len(sim.History) != 0 {
		t.Errorf("StepCount = %d, History = %d, want 0 and 0", sim.StepCount, len(sim.History))
	}
	if err := sim.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
	if h := sim.Get(49); h == nil || h.ID != 49 {
		t.Errorf("Get(49) = %+v", h)
	}
	if sim.Get(50) != nil {
		t.Error("Get(50) should be nil")
	}
}

func TestInvariantsHoldEveryStep(t *testing.T) {
	for _, name := range economy.PresetNames() {
		t.Run(name, func(t *testing.T) {
			p, _ := economy.Preset(name)
			sim := New(Options{Seed: 7, Households: 50, Params: p})
			prev := len(sim.Households)
			for i := 0; i < 100; i++ {
				m := sim.Step()
				if err := sim.CheckInvariants(); err != nil {
					t.Fatalf("step %d: %v", m.Step, err)
				}
				if m.Population < prev {
					t.Fatalf("step %d: population fell from %d to %d", m.Step, prev, m.Population)
				}
				if m.NewHome+m.SecondaryMarket > m.TenureChanges {
					t.Fatalf("step %d: new_home %d + secondary_market %d exceeds tenure changes %d",
						m.Step, m.NewHome, m.SecondaryMarket, m.TenureChanges)
				}
				if m.LowQualityRatio < 0 || m.LowQualityRatio > 1 {
					t.Fatalf("step %d: low quality ratio %v", m.Step, m.LowQualityRatio)
				}
				if m.AvgQuality != 0 && (m.AvgQuality < economy.MinQuality || m.AvgQuality > economy.MaxQuality) {
					t.Fatalf("step %d: average quality %v", m.Step, m.AvgQuality)
				}
				if m.Demand != m.RenterHigh+m.RenterMid+m.RenterLow {
					t.Fatalf("step %d: demand %d does not match renters", m.Step, m.Demand)
				}
				prev = m.Population
			}
			if len(sim.History) != 100 {
				t.Errorf("History = %d records, want 100", len(sim.History))
			}
		})
	}
}

func TestSameSeedSameSeries(t *testing.T) {
	run := func() []byte {
		sim := newBaseline(42, 50)
		for i := 0; i < 100; i++ {
			sim.Step()
		}
		raw, err := json.Marshal(sim.History)
		if err != nil {
			t.Fatal(err)
		}
		return raw
	}
	a, b := run(), run()
	if string(a) != string(b) {
		t.Error("two runs with seed 42 produced different series")
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a, b := newBaseline(1, 50), newBaseline(2, 50)
	for i := 0; i < 20; i++ {
		a.Step()
		b.Step()
	}
	ja, _ := json.Marshal(a.History)
	jb, _ := json.Marshal(b.History)
	if string(ja) == string(jb) {
		t.Error("seeds 1 and 2 produced identical series")
	}
}

func TestBaselineSupplyRecomputed(t *testing.T) {
	sim := newBaseline(42, 50)
	m := sim.Step()
	if m.SupplyRecomputed != 8 {
		t.Errorf("SupplyRecomputed = %d, want 8", m.SupplyRecomputed)
	}
	if m.NewSupplyLeft < 0 || m.NewSupplyLeft > 8 {
		t.Errorf("NewSupplyLeft = %d, want within [0, 8]", m.NewSupplyLeft)
	}
}

func TestZeroLiquidityStopsNewConstruction(t *testing.T) {
	p := economy.Baseline()
	p.ML = 0
	sim := New(Options{Seed: 3, Households: 50, Params: p})
	sim.Step()
	for i := 0; i < 10; i++ {
		m := sim.Step()
		if m.SupplyRecomputed != 0 || m.NewSupplyLeft != 0 {
			t.Fatalf("step %d: supply %d/%d with zero liquidity", m.Step, m.SupplyRecomputed, m.NewSupplyLeft)
		}
		if m.NewHome != 0 {
			t.Fatalf("step %d: %d new homes with zero supply", m.Step, m.NewHome)
		}
		for _, e := range sim.StepEvents {
			if e.Phase == PhaseHouseholds && e.Kind == agents.KindBuyNew {
				t.Fatalf("step %d: household bought new construction with zero supply", m.Step)
			}
		}
	}
}

func TestGrowth(t *testing.T) {
	sim := newBaseline(42, 50)
	before := len(sim.Households)
	m := sim.Step()
	if m.Growth < MinArrivals || m.Growth > MaxArrivals {
		t.Fatalf("growth = %d, want within [%d, %d]", m.Growth, MinArrivals, MaxArrivals)
	}
	if m.Population != before+m.Growth {
		t.Errorf("population = %d, want %d", m.Population, before+m.Growth)
	}

	spawns := 0
	for _, e := range sim.StepEvents {
		if e.Kind == KindSpawn {
			spawns++
			if e.Phase != PhaseGrowth {
				t.Errorf("spawn event in phase %s", e.Phase)
			}
		}
	}
	if spawns != m.Growth {
		t.Errorf("spawn events = %d, want %d", spawns, m.Growth)
	}

	again := newBaseline(42, 50).Step()
	if again.Growth != m.Growth {
		t.Errorf("growth not reproducible: %d then %d", m.Growth, again.Growth)
	}
}

func TestBulkBuyRespectsCeilings(t *testing.T) {
	sim := newBaseline(11, 80)
	for i := 0; i < 50; i++ {
		sim.Step()
		for _, e := range sim.StepEvents {
			if e.Phase != PhaseBulkBuy {
				continue
			}
			switch e.Kind {
			case agents.KindBulkBuySecondary:
				if e.Group == economy.GroupHigh {
					t.Fatalf("step %d: high-income household bought on the secondary market", e.Step)
				}
				if e.Quality > QualityCeiling(e.Group) {
					t.Fatalf("step %d: %s-income household bought quality %v above ceiling %v",
						e.Step, e.Group, e.Quality, QualityCeiling(e.Group))
				}
			case agents.KindBulkBuyNew:
				if e.Group != economy.GroupHigh {
					t.Fatalf("step %d: %s-income household bought new construction", e.Step, e.Group)
				}
				if e.Quality < NewUnitMinQuality || e.Quality > NewUnitMaxQuality {
					t.Fatalf("step %d: new unit quality %v", e.Step, e.Quality)
				}
			}
		}
	}
}

func TestHighIncomePass(t *testing.T) {
	sim := newBaseline(5, 0)
	sim.Market.NewSupply = 3

	owner := &agents.Household{ID: 0, Group: economy.GroupHigh, Tenure: agents.TenureOwner}
	q := 4.2
	owner.Quality = &q
	sim.addHousehold(owner)

	sim.highIncomePass(1)

	if !owner.Owns() {
		t.Fatal("owner below 4.5 should have moved into new construction")
	}
	if got := owner.OwnedQuality(); got < NewUnitMinQuality || got > NewUnitMaxQuality {
		t.Errorf("new quality = %v", got)
	}
	if !owner.IsNewHome {
		t.Error("IsNewHome not set")
	}
	if sim.Market.NewSupply != 2 {
		t.Errorf("NewSupply = %d, want 2", sim.Market.NewSupply)
	}
	c := sim.Market.Counters
	if c.HighIncomeSwap != 1 || c.NewHome != 1 {
		t.Errorf("Counters = %+v, want one swap and one new home", c)
	}
	if len(sim.Market.Released) != 1 || sim.Market.Released[0] != 4.2 {
		t.Errorf("Released = %v, want [4.2]", sim.Market.Released)
	}
	if len(sim.StepEvents) != 2 || sim.StepEvents[0].Kind != agents.KindForcedResale {
		t.Errorf("events = %+v", sim.StepEvents)
	}
}

func TestHighIncomePassLeavesGoodHomesAlone(t *testing.T) {
	sim := newBaseline(5, 0)
	q := 4.8
	sim.addHousehold(&agents.Household{ID: 0, Group: economy.GroupHigh, Tenure: agents.TenureOwner, Quality: &q})
	sim.highIncomePass(1)
	if len(sim.StepEvents) != 0 {
		t.Errorf("events = %+v, want none", sim.StepEvents)
	}
}

func TestRentalTransactionsAccumulate(t *testing.T) {
	sim := newBaseline(9, 50)
	last := 0
	for i := 0; i < 30; i++ {
		m := sim.Step()
		if m.RentalTransactions < last {
			t.Fatalf("step %d: rental transactions fell from %d to %d", m.Step, last, m.RentalTransactions)
		}
		last = m.RentalTransactions
	}
}

func TestEventLogIsCapped(t *testing.T) {
	sim := newBaseline(1, 200)
	for i := 0; i < 200; i++ {
		sim.Step()
	}
	if len(sim.Events) > MaxEvents {
		t.Errorf("event log holds %d events, cap is %d", len(sim.Events), MaxEvents)
	}
}

func TestWarmupIsNotRecorded(t *testing.T) {
	sim := New(Options{Seed: 42, Households: 50, Params: economy.Baseline(), Warmup: true})
	if sim.StepCount != 1 {
		t.Errorf("StepCount = %d, want 1 after warm-up", sim.StepCount)
	}
	if len(sim.History) != 0 {
		t.Errorf("History = %d records, want 0", len(sim.History))
	}
	if m := sim.Step(); m.Step != 2 {
		t.Errorf("first recorded step = %d, want 2", m.Step)
	}
}

func TestSnapshot(t *testing.T) {
	sim := newBaseline(42, 50)
	for i := 0; i < 10; i++ {
		sim.Step()
	}
	snap := sim.Snapshot()
	if snap.Step != 10 || snap.Population != len(sim.Households) {
		t.Fatalf("snapshot step %d population %d", snap.Step, snap.Population)
	}
	total := 0.0
	households := 0
	for _, g := range snap.Groups {
		total += g.OwnerPct + g.RenterPct
		households += g.Households
		if g.Owners+g.Renters != g.Households {
			t.Errorf("%s: owners %d + renters %d != %d", g.Group, g.Owners, g.Renters, g.Households)
		}
	}
	if households != snap.Population {
		t.Errorf("groups hold %d households, want %d", households, snap.Population)
	}
	if total < 99.999 || total > 100.001 {
		t.Errorf("percentages sum to %v, want 100", total)
	}
}

func TestEngineRun(t *testing.T) {
	sim := newBaseline(42, 50)
	eng := NewEngine(sim)
	eng.Steps = 25

	hooked := 0
	eng.OnStep = func(m Metrics, events []Event) error {
		hooked++
		for _, e := range events {
			if e.Step != m.Step {
				t.Errorf("hook for step %d got event from step %d", m.Step, e.Step)
			}
		}
		return nil
	}

	series, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 25 || hooked != 25 {
		t.Errorf("series = %d, hook calls = %d, want 25 and 25", len(series), hooked)
	}
	for i, m := range series {
		if m.Step != i+1 {
			t.Fatalf("series[%d].Step = %d", i, m.Step)
		}
	}
}

func TestEngineRunCancelled(t *testing.T) {
	eng := NewEngine(newBaseline(42, 50))
	ctx, cancel := context.WithCancel(context.Background())
	eng.OnStep = func(m Metrics, _ []Event) error {
		if m.Step == 3 {
			cancel()
		}
		return nil
	}

	series, err := eng.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(series) != 3 {
		t.Errorf("series = %d records, want 3", len(series))
	}
}

func TestEngineRunHookError(t *testing.T) {
	eng := NewEngine(newBaseline(42, 50))
	boom := errors.New("boom")
	eng.OnStep = func(Metrics, []Event) error { return boom }

	series, err := eng.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if len(series) != 1 {
		t.Errorf("series = %d records, want 1", len(series))
	}
}

func TestRestore(t *testing.T) {
	src := newBaseline(42, 30)
	for i := 0; i < 5; i++ {
		src.Step()
	}

	sim, err := Restore(Options{Seed: 42, Params: economy.Baseline()}, src.Households, src.StepCount)
	if err != nil {
		t.Fatal(err)
	}
	if sim.StepCount != 5 || sim.Snapshot() != src.Snapshot() {
		t.Errorf("restored snapshot %+v, want %+v", sim.Snapshot(), src.Snapshot())
	}
	if got, want := sim.Spawner.NextID(), agents.HouseholdID(len(src.Households)); got != want {
		t.Fatalf("NextID() = %d, want %d", got, want)
	}

	m := sim.Step()
	if m.Step != 6 {
		t.Errorf("step after restore = %d, want 6", m.Step)
	}
	if err := sim.CheckInvariants(); err != nil {
		t.Fatalf("arrivals after restore broke the arena: %v", err)
	}
}

func TestRestoreRejectsBrokenArena(t *testing.T) {
	households := newBaseline(1, 3).Households
	households[2].ID = 9

	if _, err := Restore(Options{Seed: 1, Params: economy.Baseline()}, households, 0); err == nil {
		t.Error("Restore() accepted an arena with a misplaced ID")
	}
}

func TestQualityStatistics(t *testing.T) {
	tests := []struct {
		name       string
		households []*agents.Household
		avg, sd    float64
		lowRatio   float64
	}{
		{
			name:       "renters ignored",
			households: []*agents.Household{owner(economy.GroupMid, 2.0), renter(economy.GroupLow), owner(economy.GroupHigh, 4.0), owner(economy.GroupMid, 3.0)},
			avg:        3.0, sd: 1.0, lowRatio: 1.0 / 3,
		},
		{
			name:       "single owner has no spread",
			households: []*agents.Household{owner(economy.GroupHigh, 4.5), renter(economy.GroupMid)},
			avg:        4.5, sd: 0, lowRatio: 0,
		},
		{
			name:       "no owners",
			households: []*agents.Household{renter(economy.GroupMid)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := arenaSim(tt.households, 0.5)
			m := sim.collect(1, 0)
			if math.Abs(m.AvgQuality-tt.avg) > 1e-9 {
				t.Errorf("AvgQuality = %v, want %v", m.AvgQuality, tt.avg)
			}
			if math.Abs(m.QualitySD-tt.sd) > 1e-9 {
				t.Errorf("QualitySD = %v, want %v", m.QualitySD, tt.sd)
			}
			if math.Abs(m.LowQualityRatio-tt.lowRatio) > 1e-9 {
				t.Errorf("LowQualityRatio = %v, want %v", m.LowQualityRatio, tt.lowRatio)
			}
		})
	}
}
