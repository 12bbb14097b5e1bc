package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/housing-filter/internal/engine"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&app{})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
}

func TestRunWritesCSV(t *testing.T) {
	out, errOut, err := execute(t, "run", "--steps", "5", "--households", "20", "--log-level", "error")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d csv rows, want header + 5", len(records))
	}
	if !strings.Contains(errOut, "After 5 steps") {
		t.Errorf("summary missing from stderr:\n%s", errOut)
	}
}

func TestRunJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.json")
	_, errOut, err := execute(t, "run", "--steps", "3", "--format", "json", "--out", path,
		"--quiet", "--ml", "80", "--log-level", "error")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}
	if errOut != "" {
		t.Errorf("--quiet still printed:\n%s", errOut)
	}

	series := readSeries(t, path)
	if len(series) != 3 {
		t.Fatalf("got %d records, want 3", len(series))
	}
	// ml=80 with the baseline otherwise: floor(0.8*20*1.03*0.82*0.95) = 12.
	if series[0].SupplyRecomputed != 12 {
		t.Errorf("SupplyRecomputed = %d, want 12", series[0].SupplyRecomputed)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"out of range", []string{"run", "--lr", "20"}},
		{"unknown preset", []string{"run", "--preset", "boom"}},
		{"bad format", []string{"run", "--format", "xml"}},
		{"zero steps", []string{"run", "--steps", "0"}},
		{"save without db", []string{"run", "--save"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, append(tt.args, "--log-level", "error")...); err == nil {
				t.Errorf("%v: expected an error", tt.args)
			}
		})
	}
}

func TestSaveHistoryShow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, errOut, err := execute(t, "run", "--steps", "4", "--save", "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}

	out, _, err := execute(t, "history", "--json", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	var runs []struct {
		ID        string `json:"id"`
		Completed int    `json:"completed"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("history output: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Completed != 4 {
		t.Fatalf("history = %+v, want one run with 4 steps", runs)
	}

	out, errOut, err = execute(t, "show", runs[0].ID, "--format", "json", "--events", "5", "--db", db)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, errOut)
	}
	var series []engine.Metrics
	if err := json.Unmarshal([]byte(out), &series); err != nil {
		t.Fatal(err)
	}
	if len(series) != 4 {
		t.Errorf("show printed %d records, want 4", len(series))
	}
	if !strings.Contains(errOut, "After 4 steps") || !strings.Contains(errOut, "PHASE") {
		t.Errorf("show stderr:\n%s", errOut)
	}
}

func TestShowCountsWarmupStep(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, errOut, err := execute(t, "run", "--steps", "4", "--warmup", "--save", "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}
	if !strings.Contains(errOut, "After 5 steps") {
		t.Fatalf("run stderr:\n%s", errOut)
	}

	out, _, err := execute(t, "history", "--json", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	var runs []struct {
		ID     string `json:"id"`
		Warmup bool   `json:"warmup"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("history output: %v\n%s", err, out)
	}
	if len(runs) != 1 || !runs[0].Warmup {
		t.Fatalf("history = %+v, want one warm-up run", runs)
	}

	_, errOut, err = execute(t, "show", runs[0].ID, "--db", db)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, errOut)
	}
	if !strings.Contains(errOut, "After 5 steps") {
		t.Errorf("show stderr:\n%s", errOut)
	}
}

func TestPresets(t *testing.T) {
	out, _, err := execute(t, "presets")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"baseline", "credit_stimulus", "fiscal_subsidy"} {
		if !strings.Contains(out, name) {
			t.Errorf("presets output missing %s:\n%s", name, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug").String() != "DEBUG" || parseLevel("").String() != "INFO" {
		t.Error("unexpected level mapping")
	}
}

func readSeries(t *testing.T, path string) []engine.Metrics {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var series []engine.Metrics
	if err := json.Unmarshal(data, &series); err != nil {
		t.Fatal(err)
	}
	return series
}
