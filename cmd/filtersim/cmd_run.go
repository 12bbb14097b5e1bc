package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/housing-filter/internal/config"
	"github.com/talgya/housing-filter/internal/engine"
	"github.com/talgya/housing-filter/internal/persistence"
	"github.com/talgya/housing-filter/internal/report"
)

// paramFlags maps CLI flag names to the override fields they set.
func paramFlags(o *config.ParamOverrides) map[string]**float64 {
	return map[string]**float64{
		"pir": &o.PIR, "ig": &o.IG, "lr": &o.LR,
		"dpr": &o.DPR, "gs": &o.GS, "st": &o.ST,
		"ml": &o.ML, "rpr": &o.RPR, "hsr": &o.HSR,
	}
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and print its metrics series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSimulation(ctx, cmd, cfg)
		},
	}

	cmd.Flags().Int64("seed", 0, "Random seed")
	cmd.Flags().Int("households", 0, "Initial household count")
	cmd.Flags().Int("steps", 0, "Steps to run")
	cmd.Flags().String("preset", "", "Scenario preset (see 'filtersim presets')")
	cmd.Flags().Bool("warmup", false, "Run one unrecorded step before recording")
	cmd.Flags().String("out", "-", "Series output file, '-' for stdout")
	cmd.Flags().String("format", "csv", "Series output format: csv or json")
	cmd.Flags().Bool("save", false, "Save the run to the history database")
	cmd.Flags().Bool("quiet", false, "Do not print the narrative summary")
	for name := range paramFlags(&config.ParamOverrides{}) {
		cmd.Flags().Float64(name, 0, fmt.Sprintf("Override the %s input", name))
	}

	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Run.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("households") {
		cfg.Run.Households, _ = flags.GetInt("households")
	}
	if flags.Changed("steps") {
		cfg.Run.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("preset") {
		cfg.Preset, _ = flags.GetString("preset")
	}
	if flags.Changed("warmup") {
		cfg.Run.Warmup, _ = flags.GetBool("warmup")
	}
	for name, dst := range paramFlags(&cfg.Params) {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = &v
	}

	format, _ := flags.GetString("format")
	if format != "csv" && format != "json" {
		return fmt.Errorf("invalid format: %s (valid: csv, json)", format)
	}
	save, _ := flags.GetBool("save")
	if save && cfg.Store.Path == "" {
		return errors.New("--save needs a database path (--db, store.path or FILTERSIM_DB)")
	}
	return nil
}

func runSimulation(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	params, err := cfg.Parameters()
	if err != nil {
		return err
	}

	sim := engine.New(engine.Options{
		Seed:       cfg.Run.Seed,
		Households: cfg.Run.Households,
		Params:     params,
		Warmup:     cfg.Run.Warmup,
	})
	eng := engine.NewEngine(sim)
	eng.Steps = cfg.Run.Steps
	eng.ReportEvery = cfg.Run.ReportEvery

	// ── Run history ───────────────────────────────────────────────────
	save, _ := cmd.Flags().GetBool("save")
	var db *persistence.DB
	var run persistence.Run
	if save {
		db, err = persistence.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		run, err = db.CreateRun(persistence.RunSettings{
			Seed:       cfg.Run.Seed,
			Households: cfg.Run.Households,
			Steps:      cfg.Run.Steps,
			Warmup:     cfg.Run.Warmup,
			Preset:     cfg.Preset,
			Params:     params,
		})
		if err != nil {
			return err
		}
		slog.Info("saving run", "run_id", run.ID, "path", cfg.Store.Path)
		eng.OnStep = func(m engine.Metrics, events []engine.Event) error {
			return db.SaveStep(run.ID, m, events)
		}
	}

	// ── Simulation ────────────────────────────────────────────────────
	series, runErr := eng.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err := sim.CheckInvariants(); err != nil {
		return fmt.Errorf("invariant violated: %w", err)
	}

	if db != nil {
		if err := db.SaveHouseholds(run.ID, sim.Households); err != nil {
			return fmt.Errorf("save households: %w", err)
		}
		if err := db.FinishRun(run.ID, len(series)); err != nil {
			return err
		}
	}

	if err := writeSeries(cmd, series); err != nil {
		return err
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		fmt.Fprint(cmd.ErrOrStderr(), report.Summary(sim.Snapshot()))
		fmt.Fprint(cmd.ErrOrStderr(), report.Trend(series))
		if db != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Run saved as %s\n", run.ID)
		}
	}
	return nil
}

func writeSeries(cmd *cobra.Command, series []engine.Metrics) error {
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")

	var w io.Writer = cmd.OutOrStdout()
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "json" {
		return report.WriteJSON(w, series)
	}
	return report.WriteCSV(w, series)
}
