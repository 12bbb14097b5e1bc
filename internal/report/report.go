// Package report renders simulation output for people and other tools: a
// short ownership narrative and CSV / JSON exports of the metrics series.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/housing-filter/internal/engine"
)

// Summary describes ownership and renting per income group.
func Summary(snap engine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "After %s %s, %s households are in the market.\n",
		humanize.Comma(int64(snap.Step)), plural(snap.Step, "step", "steps"),
		humanize.Comma(int64(snap.Population)))

	owners := make([]string, 0, len(snap.Groups))
	renters := make([]string, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		owners = append(owners, fmt.Sprintf("%s-income owners about %s", g.Group, pct(g.OwnerPct)))
		renters = append(renters, fmt.Sprintf("%s-income renters about %s", g.Group, pct(g.RenterPct)))
	}
	fmt.Fprintf(&b, "Ownership: %s.\n", strings.Join(owners, ", "))
	fmt.Fprintf(&b, "Renting: %s.\n", strings.Join(renters, ", "))
	return b.String()
}

// Trend describes how the series moved from its first to its last record.
func Trend(series []engine.Metrics) string {
	if len(series) == 0 {
		return "No steps recorded.\n"
	}
	first, last := series[0], series[len(series)-1]
	newHomes, secondary := 0, 0
	for _, m := range series {
		newHomes += m.NewHome
		secondary += m.SecondaryMarket
	}
	return fmt.Sprintf(
		"Average owned quality went from %.2f to %.2f; low-quality share from %s to %s.\n"+
			"%s new-home and %s secondary-market purchases; %s cumulative rental transactions.\n",
		first.AvgQuality, last.AvgQuality,
		pct(100*first.LowQualityRatio), pct(100*last.LowQualityRatio),
		humanize.Comma(int64(newHomes)), humanize.Comma(int64(secondary)),
		humanize.Comma(int64(last.RentalTransactions)),
	)
}

func pct(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + "%"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// CSVHeader lists the exported columns in order.
var CSVHeader = []string{
	"step", "population", "pop_high", "pop_mid", "pop_low", "growth",
	"new_home", "secondary_market", "high_income_swap", "upgrade_swap",
	"rental_transactions", "rental_count", "tenure_changes",
	"avg_quality", "quality_sd", "low_quality_ratio", "supply_recomputed", "new_supply_left",
	"supply", "demand",
	"owner_high", "renter_high", "owner_mid", "renter_mid", "owner_low", "renter_low",
}

// WriteCSV writes the series with a header row.
func WriteCSV(w io.Writer, series []engine.Metrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range series {
		if err := cw.Write(csvRow(m)); err != nil {
			return fmt.Errorf("write csv step %d: %w", m.Step, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(m engine.Metrics) []string {
	i := strconv.Itoa
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return []string{
		i(m.Step), i(m.Population), i(m.PopHigh), i(m.PopMid), i(m.PopLow), i(m.Growth),
		i(m.NewHome), i(m.SecondaryMarket), i(m.HighIncomeSwap), i(m.UpgradeSwap),
		i(m.RentalTransactions), i(m.RentalCount), i(m.TenureChanges),
		f(m.AvgQuality), f(m.QualitySD), f(m.LowQualityRatio), i(m.SupplyRecomputed), i(m.NewSupplyLeft),
		i(m.Supply), i(m.Demand),
		i(m.OwnerHigh), i(m.RenterHigh), i(m.OwnerMid), i(m.RenterMid), i(m.OwnerLow), i(m.RenterLow),
	}
}

// WriteJSON writes the series as an indented JSON array.
func WriteJSON(w io.Writer, series []engine.Metrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if series == nil {
		series = []engine.Metrics{}
	}
	return enc.Encode(series)
}
