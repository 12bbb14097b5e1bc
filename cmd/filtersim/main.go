// Command filtersim runs the housing filtering simulation: income-stratified
// households trading owned and rented units under fixed economic conditions.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/housing-filter/internal/config"
)

var version = "0.1.0-dev"

// app carries state shared by subcommands once the root pre-run has loaded it.
type app struct {
	cfg *config.Config
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filtersim",
		Short: "Housing filtering simulation",
		Long: `filtersim simulates how owned and rented housing units move between
high-, mid- and low-income households over discrete steps, under a fixed set
of economic conditions (price-to-income ratio, credit terms, subsidies, taxes,
liquidity).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("db", "", "Run history database path")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(a),
		newPresetsCmd(),
		newHistoryCmd(a),
		newShowCmd(a),
	)
	return rootCmd
}

// setup loads configuration (file, environment, then flags) and installs the
// default logger.
func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("db") {
		cfg.Store.Path, _ = flags.GetString("db")
	}

	slog.SetDefault(newLogger(os.Stderr, cfg.Logging))
	a.cfg = cfg
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "filtersim version %s\n", version)
		},
	}
}
