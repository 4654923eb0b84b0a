// Package runlog records suite runs and per-scenario outcomes in SQLite,
// so regressions can be traced across runs. A failing runlog store never
// fails the suite: write errors are logged and dropped.
package runlog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	scenarios   INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS scenario_results (
	result_id   TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(run_id),
	title       TEXT NOT NULL,
	pass        INTEGER NOT NULL,
	updated     INTEGER NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON scenario_results(run_id);
`

// Entry is one recorded scenario outcome.
type Entry struct {
	ResultID string
	Title    string
	Pass     bool
	Updated  bool
	Detail   string
	Duration time.Duration
}

// Log is a handle on the run-history database.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the run-history database at path with
// the production pragma set applied via EXEC.
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("runlog: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: schema: %w", err)
	}
	return &Log{db: db, logger: logger}, nil
}

// Begin registers a new suite run.
func (l *Log) Begin(runID string) {
	_, err := l.db.Exec(
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		runID, time.Now().UnixMilli())
	if err != nil {
		l.logger.Warn("runlog: begin run", "run_id", runID, "error", err)
	}
}

// Record stores one scenario outcome under the run.
func (l *Log) Record(runID string, e Entry) {
	_, err := l.db.Exec(`
		INSERT INTO scenario_results
			(result_id, run_id, title, pass, updated, detail, duration_ms, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.ResultID, runID, e.Title, boolInt(e.Pass), boolInt(e.Updated),
		e.Detail, e.Duration.Milliseconds(), time.Now().UnixMilli())
	if err != nil {
		l.logger.Warn("runlog: record result", "title", e.Title, "error", err)
	}
}

// Finish closes out a run with its totals.
func (l *Log) Finish(runID string, scenarios, failures int) {
	_, err := l.db.Exec(
		`UPDATE runs SET finished_at = ?, scenarios = ?, failures = ? WHERE run_id = ?`,
		time.Now().UnixMilli(), scenarios, failures, runID)
	if err != nil {
		l.logger.Warn("runlog: finish run", "run_id", runID, "error", err)
	}
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
