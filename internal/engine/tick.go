// Package engine provides the step-based housing market simulation and the
// loop that drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultSteps is the usual run length.
const DefaultSteps = 100

// StepHook is called after every recorded step with its metrics and events.
// A non-nil error stops the run.
type StepHook func(m Metrics, events []Event) error

// Engine drives a Simulation forward for a fixed number of steps.
type Engine struct {
	Sim         *Simulation
	Steps       int // Steps to run
	ReportEvery int // Log a step report every N steps; 0 disables

	OnStep StepHook
}

// NewEngine creates an engine for sim with default settings.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:         sim,
		Steps:       DefaultSteps,
		ReportEvery: 10,
	}
}

// Run advances the simulation until Steps have run or ctx is cancelled.
// Cancellation takes effect between steps; a step in progress always
// completes. Returns the metrics recorded by this call.
func (e *Engine) Run(ctx context.Context) ([]Metrics, error) {
	start := time.Now()
	slog.Info("simulation engine started",
		"steps", e.Steps,
		"households", len(e.Sim.Households),
		"seed", e.Sim.Rand.Seed(),
	)

	series := make([]Metrics, 0, e.Steps)
	for i := 0; i < e.Steps; i++ {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation engine stopped", "step", e.Sim.StepCount, "reason", err)
			return series, err
		}

		m := e.Sim.Step()
		series = append(series, m)

		if e.OnStep != nil {
			if err := e.OnStep(m, e.Sim.StepEvents); err != nil {
				return series, fmt.Errorf("step %d hook: %w", m.Step, err)
			}
		}
		if e.ReportEvery > 0 && m.Step%e.ReportEvery == 0 {
			logReport(m)
		}
	}

	slog.Info("simulation engine finished",
		"step", e.Sim.StepCount,
		"population", len(e.Sim.Households),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return series, nil
}

func logReport(m Metrics) {
	slog.Info("step report",
		"step", m.Step,
		"population", m.Population,
		"new_home", m.NewHome,
		"secondary_market", m.SecondaryMarket,
		"high_income_swap", m.HighIncomeSwap,
		"upgrade_swap", m.UpgradeSwap,
		"rental_transactions", m.RentalTransactions,
		"avg_quality", fmt.Sprintf("%.3f", m.AvgQuality),
		"low_quality_ratio", fmt.Sprintf("%.3f", m.LowQualityRatio),
		"supply", m.Supply,
		"demand", m.Demand,
	)
}
