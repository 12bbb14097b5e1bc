// Package config provides configuration loading for filtersim.
// It supports loading from YAML files and environment variables, and holds
// the boundary validation of run inputs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/housing-filter/internal/economy"
)

var (
	// ErrOutOfRange is returned when an economic input is outside its documented range.
	ErrOutOfRange = errors.New("parameter out of range")
	// ErrInvalidRun is returned for a non-positive household or step count.
	ErrInvalidRun = errors.New("invalid run settings")
	// ErrUnknownPreset is returned for a preset name that does not exist.
	ErrUnknownPreset = errors.New("unknown preset")
)

// Config contains all filtersim configuration settings.
type Config struct {
	// Run contains the seed and run size.
	Run RunConfig `json:"run" yaml:"run"`

	// Preset names the scenario the parameters start from.
	Preset string `json:"preset" yaml:"preset"`

	// Params overrides individual inputs of the preset.
	Params ParamOverrides `json:"params" yaml:"params"`

	// Store configures the run-history database.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging configures log verbosity and format.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RunConfig sizes a run.
type RunConfig struct {
	Seed        int64 `json:"seed" yaml:"seed"`
	Households  int   `json:"households" yaml:"households"`
	Steps       int   `json:"steps" yaml:"steps"`
	Warmup      bool  `json:"warmup" yaml:"warmup"`
	ReportEvery int   `json:"report_every" yaml:"report_every"`
}

// ParamOverrides holds optional per-input overrides. Nil fields keep the
// preset value.
type ParamOverrides struct {
	PIR *float64 `json:"pir,omitempty" yaml:"pir,omitempty"`
	IG  *float64 `json:"ig,omitempty" yaml:"ig,omitempty"`
	LR  *float64 `json:"lr,omitempty" yaml:"lr,omitempty"`
	DPR *float64 `json:"dpr,omitempty" yaml:"dpr,omitempty"`
	GS  *float64 `json:"gs,omitempty" yaml:"gs,omitempty"`
	ST  *float64 `json:"st,omitempty" yaml:"st,omitempty"`
	ML  *float64 `json:"ml,omitempty" yaml:"ml,omitempty"`
	RPR *float64 `json:"rpr,omitempty" yaml:"rpr,omitempty"`
	HSR *float64 `json:"hsr,omitempty" yaml:"hsr,omitempty"`
}

// StoreConfig configures the SQLite run-history store.
type StoreConfig struct {
	// Path is the database file. Empty disables saving.
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "debug", "info" (default), "warn" or "error".
	Level string `json:"level" yaml:"level"`
	// Format is "text" (default, colored) or "json".
	Format string `json:"format" yaml:"format"`
}

// Default returns a Config with the baseline scenario.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Seed:        42,
			Households:  50,
			Steps:       100,
			Warmup:      false,
			ReportEvery: 10,
		},
		Preset: economy.PresetBaseline,
		Store: StoreConfig{
			Path: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the file at path (if any),
// then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Store.Path = os.Expand(cfg.Store.Path, os.Getenv)
	return cfg, nil
}

// Parameters resolves the preset and applies the overrides.
func (c *Config) Parameters() (economy.Params, error) {
	p, ok := economy.Preset(c.Preset)
	if !ok {
		return economy.Params{}, fmt.Errorf("%w: %q (valid: %s)",
			ErrUnknownPreset, c.Preset, strings.Join(economy.PresetNames(), ", "))
	}
	o := c.Params
	for _, f := range []struct {
		dst *float64
		src *float64
	}{
		{&p.PIR, o.PIR}, {&p.IG, o.IG}, {&p.LR, o.LR},
		{&p.DPR, o.DPR}, {&p.GS, o.GS}, {&p.ST, o.ST},
		{&p.ML, o.ML}, {&p.RPR, o.RPR}, {&p.HSR, o.HSR},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return p, nil
}

// Validate checks that the configuration is valid. The simulation core
// assumes every check here has passed.
func (c *Config) Validate() error {
	if c.Run.Households <= 0 {
		return fmt.Errorf("%w: households must be positive, got %d", ErrInvalidRun, c.Run.Households)
	}
	if c.Run.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidRun, c.Run.Steps)
	}
	if c.Run.ReportEvery < 0 {
		return fmt.Errorf("%w: report_every must be non-negative, got %d", ErrInvalidRun, c.Run.ReportEvery)
	}

	p, err := c.Parameters()
	if err != nil {
		return err
	}
	if bad := p.OutOfRange(); len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrOutOfRange, strings.Join(bad, "; "))
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	validFormats := map[string]bool{"": true, "text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FILTERSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Run.Seed = n
		}
	}
	if v := os.Getenv("FILTERSIM_HOUSEHOLDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Run.Households = n
		}
	}
	if v := os.Getenv("FILTERSIM_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Run.Steps = n
		}
	}
	if v := os.Getenv("FILTERSIM_PRESET"); v != "" {
		cfg.Preset = v
	}
	if v := os.Getenv("FILTERSIM_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FILTERSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FILTERSIM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
