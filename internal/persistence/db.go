// Package persistence provides SQLite-based run history storage: the
// parameters of each run, its metrics series, its event log and the final
// household arena.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/housing-filter/internal/agents"
	"github.com/talgya/housing-filter/internal/economy"
	"github.com/talgya/housing-filter/internal/engine"
)

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		households INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		warmup INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		preset TEXT NOT NULL,
		params_json TEXT NOT NULL,
		created_unix INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		population INTEGER NOT NULL,
		new_home INTEGER NOT NULL,
		secondary_market INTEGER NOT NULL,
		avg_quality REAL NOT NULL,
		supply INTEGER NOT NULL,
		demand INTEGER NOT NULL,
		metrics_json TEXT NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		phase TEXT NOT NULL,
		household_id INTEGER NOT NULL,
		grp INTEGER NOT NULL,
		kind TEXT NOT NULL,
		quality REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS households (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		grp INTEGER NOT NULL,
		tenure INTEGER NOT NULL,
		quality REAL,
		rental_quality REAL,
		prior_quality REAL NOT NULL,
		born_step INTEGER NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_step ON events(run_id, step);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_unix);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one stored simulation run.
type Run struct {
	ID          string `db:"id" json:"id"`
	Seed        int64  `db:"seed" json:"seed"`
	Households  int    `db:"households" json:"households"`
	Steps       int    `db:"steps" json:"steps"`
	Warmup      bool   `db:"warmup" json:"warmup"`
	Completed   int    `db:"completed" json:"completed"`
	Preset      string `db:"preset" json:"preset"`
	ParamsJSON  string `db:"params_json" json:"-"`
	CreatedUnix int64  `db:"created_unix" json:"created_unix"`
}

// Created returns the run's creation time.
func (r Run) Created() time.Time {
	return time.Unix(r.CreatedUnix, 0)
}

// FinalStep returns the simulation step the run ended on. A warm-up step
// advances the simulation without being recorded.
func (r Run) FinalStep() int {
	if r.Warmup {
		return r.Completed + 1
	}
	return r.Completed
}

// Params decodes the stored parameters.
func (r Run) Params() (economy.Params, error) {
	var p economy.Params
	if err := json.Unmarshal([]byte(r.ParamsJSON), &p); err != nil {
		return p, fmt.Errorf("decode params of run %s: %w", r.ID, err)
	}
	return p, nil
}

// RunSettings describes a run about to start.
type RunSettings struct {
	Seed       int64
	Households int
	Steps      int
	Warmup     bool
	Preset     string
	Params     economy.Params
}

// CreateRun registers a new run and returns it with its generated ID.
func (db *DB) CreateRun(rs RunSettings) (Run, error) {
	paramsJSON, err := json.Marshal(rs.Params)
	if err != nil {
		return Run{}, fmt.Errorf("encode params: %w", err)
	}
	run := Run{
		ID:          uuid.NewString(),
		Seed:        rs.Seed,
		Households:  rs.Households,
		Steps:       rs.Steps,
		Warmup:      rs.Warmup,
		Preset:      rs.Preset,
		ParamsJSON:  string(paramsJSON),
		CreatedUnix: time.Now().Unix(),
	}
	_, err = db.conn.NamedExec(`INSERT INTO runs
		(id, seed, households, steps, warmup, completed, preset, params_json, created_unix)
		VALUES (:id, :seed, :households, :steps, :warmup, :completed, :preset, :params_json, :created_unix)`, run)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	slog.Debug("run created", "run_id", run.ID, "seed", run.Seed)
	return run, nil
}

// FinishRun records how many steps the run completed.
func (db *DB) FinishRun(runID string, completed int) error {
	res, err := db.conn.Exec("UPDATE runs SET completed = ? WHERE id = ?", completed, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// GetRun loads a single run by ID.
func (db *DB) GetRun(runID string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", runID)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_unix DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// SaveMetrics appends metric records for a run.
func (db *DB) SaveMetrics(runID string, series []engine.Metrics) error {
	if len(series) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertMetrics(tx, runID, series); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMetrics(tx *sqlx.Tx, runID string, series []engine.Metrics) error {
	stmt, err := tx.Preparex(`INSERT INTO metrics
		(run_id, step, population, new_home, secondary_market, avg_quality, supply, demand, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range series {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode metrics step %d: %w", m.Step, err)
		}
		_, err = stmt.Exec(runID, m.Step, m.Population, m.NewHome, m.SecondaryMarket,
			m.AvgQuality, m.Supply, m.Demand, string(raw))
		if err != nil {
			return fmt.Errorf("insert metrics step %d: %w", m.Step, err)
		}
	}
	return nil
}

// LoadMetrics returns a run's metrics series in step order.
func (db *DB) LoadMetrics(runID string) ([]engine.Metrics, error) {
	var rows []string
	err := db.conn.Select(&rows,
		"SELECT metrics_json FROM metrics WHERE run_id = ? ORDER BY step", runID)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}

	series := make([]engine.Metrics, 0, len(rows))
	for _, raw := range rows {
		var m engine.Metrics
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode metrics: %w", err)
		}
		series = append(series, m)
	}
	return series, nil
}

// SaveEvents appends events for a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEvents(tx, runID, events); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEvents(tx *sqlx.Tx, runID string, events []engine.Event) error {
	for _, e := range events {
		_, err := tx.Exec(
			`INSERT INTO events (run_id, step, phase, household_id, grp, kind, quality)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, e.Step, string(e.Phase), uint64(e.HouseholdID), uint8(e.Group), string(e.Kind), e.Quality,
		)
		if err != nil {
			return fmt.Errorf("insert event step %d: %w", e.Step, err)
		}
	}
	return nil
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT step, phase, household_id, grp, kind, quality FROM events
		WHERE run_id = ? ORDER BY id DESC LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return events, nil
}

type householdRow struct {
	ID            uint64          `db:"id"`
	Group         uint8           `db:"grp"`
	Tenure        uint8           `db:"tenure"`
	Quality       sql.NullFloat64 `db:"quality"`
	RentalQuality sql.NullFloat64 `db:"rental_quality"`
	PriorQuality  float64         `db:"prior_quality"`
	BornStep      int             `db:"born_step"`
}

// SaveHouseholds writes a run's household arena (full replace).
func (db *DB) SaveHouseholds(runID string, households []*agents.Household) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM households WHERE run_id = ?", runID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO households
		(run_id, id, grp, tenure, quality, rental_quality, prior_quality, born_step)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range households {
		_, err := stmt.Exec(runID, uint64(h.ID), uint8(h.Group), uint8(h.Tenure),
			nullable(h.Quality), nullable(h.RentalQuality), h.PriorQuality, h.BornStep)
		if err != nil {
			return fmt.Errorf("insert household %d: %w", h.ID, err)
		}
	}

	return tx.Commit()
}

// LoadHouseholds restores a run's household arena in ID order.
func (db *DB) LoadHouseholds(runID string) ([]*agents.Household, error) {
	var rows []householdRow
	err := db.conn.Select(&rows,
		`SELECT id, grp, tenure, quality, rental_quality, prior_quality, born_step
		FROM households WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("load households: %w", err)
	}

	households := make([]*agents.Household, 0, len(rows))
	for _, r := range rows {
		h := &agents.Household{
			ID:           agents.HouseholdID(r.ID),
			Group:        economy.Group(r.Group),
			Tenure:       agents.Tenure(r.Tenure),
			PriorQuality: r.PriorQuality,
			BornStep:     r.BornStep,
		}
		if r.Quality.Valid {
			q := r.Quality.Float64
			h.Quality = &q
		}
		if r.RentalQuality.Valid {
			q := r.RentalQuality.Float64
			h.RentalQuality = &q
		}
		households = append(households, h)
	}
	return households, nil
}

// SaveStep stores one step's metrics and events in a single transaction.
func (db *DB) SaveStep(runID string, m engine.Metrics, events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertMetrics(tx, runID, []engine.Metrics{m}); err != nil {
		return fmt.Errorf("save step %d: %w", m.Step, err)
	}
	if err := insertEvents(tx, runID, events); err != nil {
		return fmt.Errorf("save step %d: %w", m.Step, err)
	}
	return tx.Commit()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
