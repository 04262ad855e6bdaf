package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/sweepq/internal/utils"
)

// Store is the durable simulation archive: imported sweeps, their series and
// points, and the optimization metrics computed at import time.
type Store struct {
	db   *sql.DB
	path string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

const schema = `
CREATE TABLE IF NOT EXISTS simulations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	uid           TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	circuit_name  TEXT NOT NULL,
	description   TEXT,
	created_at    TEXT NOT NULL,
	vdd           REAL,
	vt            REAL,
	temperature   REAL
);
CREATE INDEX IF NOT EXISTS idx_simulations_name ON simulations(name);
CREATE INDEX IF NOT EXISTS idx_simulations_circuit ON simulations(circuit_name);

CREATE TABLE IF NOT EXISTS categories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT
);

CREATE TABLE IF NOT EXISTS simulation_categories (
	simulation_id INTEGER NOT NULL REFERENCES simulations(id),
	category_id   INTEGER NOT NULL REFERENCES categories(id)
);

CREATE TABLE IF NOT EXISTS simulation_parameters (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	simulation_id   INTEGER NOT NULL REFERENCES simulations(id),
	parameter_name  TEXT NOT NULL,
	parameter_value REAL NOT NULL,
	unit            TEXT
);
CREATE INDEX IF NOT EXISTS idx_sim_params_name ON simulation_parameters(parameter_name);

CREATE TABLE IF NOT EXISTS sweep_configurations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	simulation_id  INTEGER NOT NULL REFERENCES simulations(id),
	parameter_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sweep_values (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	sweep_config_id INTEGER NOT NULL REFERENCES sweep_configurations(id),
	value           REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS data_series (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	simulation_id INTEGER NOT NULL REFERENCES simulations(id),
	signal_path   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS data_series_sweep_params (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	data_series_id  INTEGER NOT NULL REFERENCES data_series(id),
	parameter_name  TEXT NOT NULL,
	parameter_value REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_series_params_series ON data_series_sweep_params(data_series_id);

CREATE TABLE IF NOT EXISTS data_points (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	data_series_id INTEGER NOT NULL REFERENCES data_series(id),
	x_value        REAL NOT NULL,
	y_value        REAL NOT NULL,
	sequence       INTEGER
);
CREATE INDEX IF NOT EXISTS idx_data_points_series ON data_points(data_series_id);

CREATE TABLE IF NOT EXISTS optimization_metrics (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	simulation_id  INTEGER NOT NULL REFERENCES simulations(id),
	data_series_id INTEGER REFERENCES data_series(id),
	metric_name    TEXT NOT NULL,
	metric_value   REAL NOT NULL,
	unit           TEXT
);
CREATE INDEX IF NOT EXISTS idx_metrics_sim ON optimization_metrics(simulation_id);
CREATE INDEX IF NOT EXISTS idx_metrics_series ON optimization_metrics(data_series_id);
CREATE INDEX IF NOT EXISTS idx_metrics_name ON optimization_metrics(metric_name);
CREATE INDEX IF NOT EXISTS idx_metrics_value ON optimization_metrics(metric_value);
`

// Open opens (creating if needed) the archive at path and applies the
// schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const (
	busyMaxAttempts = 5
	busyBaseDelay   = 100 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy retries fn with linear backoff while it reports a busy
// database. Any other error fails immediately.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyMaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(busyBaseDelay * time.Duration(attempt))
		}
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
	}
	return fmt.Errorf("database busy after %d attempts: %w", busyMaxAttempts, err)
}

// Status summarizes the archive for the status command.
type Status struct {
	Path        string `json:"path"`
	SizeBytes   int64  `json:"size_bytes"`
	Simulations int64  `json:"simulations"`
	Series      int64  `json:"series"`
	Points      int64  `json:"points"`
	Metrics     int64  `json:"metrics"`
	Categories  int64  `json:"categories"`
}

// Status reports row counts and the database file size.
func (s *Store) Status() (Status, error) {
	st := Status{Path: s.path}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"simulations", &st.Simulations},
		{"data_series", &st.Series},
		{"data_points", &st.Points},
		{"optimization_metrics", &st.Metrics},
		{"categories", &st.Categories},
	}
	for _, c := range counts {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dst); err != nil {
			return Status{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}
