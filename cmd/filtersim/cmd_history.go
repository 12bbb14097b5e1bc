package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/housing-filter/internal/economy"
	"github.com/talgya/housing-filter/internal/engine"
	"github.com/talgya/housing-filter/internal/persistence"
	"github.com/talgya/housing-filter/internal/report"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List scenario presets and their inputs",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRESET\tPIR\tIG\tLR\tDPR\tGS\tST\tML\tRPR\tHSR\tNEW SUPPLY")
			for _, name := range economy.PresetNames() {
				p, _ := economy.Preset(name)
				fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%d\n",
					name, p.PIR, p.IG, p.LR, p.DPR, p.GS, p.ST, p.ML, p.RPR, p.HSR, economy.NewSupply(p))
			}
			tw.Flush()
		},
	}
}

func (a *app) openStore() (*persistence.DB, error) {
	if a.cfg.Store.Path == "" {
		return nil, errors.New("no database path (--db, store.path or FILTERSIM_DB)")
	}
	return persistence.Open(a.cfg.Store.Path)
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(limit)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved runs.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tPRESET\tSEED\tHOUSEHOLDS\tSTEPS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d/%d\n",
					r.ID, humanize.Time(r.Created()), r.Preset, r.Seed, r.Households, r.Completed, r.Steps)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum runs to list")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a saved run's metrics series and summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := db.GetRun(args[0])
			if err != nil {
				return err
			}
			series, err := db.LoadMetrics(run.ID)
			if err != nil {
				return err
			}
			households, err := db.LoadHouseholds(run.ID)
			if err != nil {
				return err
			}
			params, err := run.Params()
			if err != nil {
				return err
			}
			sim, err := engine.Restore(engine.Options{Seed: run.Seed, Params: params}, households, run.FinalStep())
			if err != nil {
				return fmt.Errorf("run %s: %w", run.ID, err)
			}

			if err := writeSeries(cmd, series); err != nil {
				return err
			}

			fmt.Fprint(cmd.ErrOrStderr(), report.Summary(sim.Snapshot()))
			fmt.Fprint(cmd.ErrOrStderr(), report.Trend(series))

			n, _ := cmd.Flags().GetInt("events")
			if n <= 0 {
				return nil
			}
			events, err := db.RecentEvents(run.ID, n)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tPHASE\tHOUSEHOLD\tGROUP\tKIND\tQUALITY")
			for _, e := range events {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%.2f\n",
					e.Step, e.Phase, e.HouseholdID, e.Group, e.Kind, e.Quality)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("out", "-", "Series output file, '-' for stdout")
	cmd.Flags().String("format", "csv", "Series output format: csv or json")
	cmd.Flags().Int("events", 0, "Also print the N most recent events")
	return cmd
}
