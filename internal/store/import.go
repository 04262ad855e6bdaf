package store

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/sweepq/internal/analysis"
	"github.com/KaramelBytes/sweepq/internal/sweep"
)

// FixedParam is a non-swept simulation parameter recorded alongside an
// import, e.g. a bias current or load capacitance.
type FixedParam struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// ImportMeta describes the simulation being archived.
type ImportMeta struct {
	Name        string
	CircuitName string
	Description string
	Categories  []string
	Fixed       []FixedParam
	VDD         *float64
	VT          *float64
	Temperature *float64

	// Ratio is the expected Y/X ratio used for the error_percentage
	// metric; zero means 1.0.
	Ratio float64

	// SkipMetrics leaves optimization_metrics empty for this import.
	SkipMetrics bool
}

// ImportResult reports what one import wrote.
type ImportResult struct {
	SimulationID int64  `json:"simulation_id"`
	UID          string `json:"uid"`
	Series       int    `json:"series"`
	Points       int    `json:"points"`
	Metrics      int    `json:"metrics"`

	// SkippedParams counts text-valued assignment entries that have no
	// numeric representation in the schema.
	SkippedParams int `json:"skipped_params,omitempty"`
}

// ImportSimulation archives every series in ix under a new simulation row,
// along with per-series error_percentage and gain metrics. The whole import
// is a single transaction: on error nothing is written.
func (s *Store) ImportSimulation(ix *sweep.Index, meta ImportMeta) (*ImportResult, error) {
	var res *ImportResult
	err := retryOnBusy(func() error {
		var err error
		res, err = s.importOnce(ix, meta)
		return err
	})
	return res, err
}

func (s *Store) importOnce(ix *sweep.Index, meta ImportMeta) (*ImportResult, error) {
	ratio := meta.Ratio
	if ratio == 0 {
		ratio = 1.0
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	uid := uuid.New().String()
	created := time.Now().UTC().Format(time.RFC3339)
	r, err := tx.Exec(`INSERT INTO simulations (uid, name, circuit_name, description, created_at, vdd, vt, temperature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uid, meta.Name, meta.CircuitName, nullStr(meta.Description), created,
		nullFloat(meta.VDD), nullFloat(meta.VT), nullFloat(meta.Temperature))
	if err != nil {
		return nil, fmt.Errorf("insert simulation: %w", err)
	}
	simID, err := r.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("simulation id: %w", err)
	}

	for _, cat := range meta.Categories {
		catID, err := getOrCreateCategory(tx, cat, "")
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(`INSERT INTO simulation_categories (simulation_id, category_id) VALUES (?, ?)`,
			simID, catID); err != nil {
			return nil, fmt.Errorf("link category %q: %w", cat, err)
		}
	}

	for _, p := range meta.Fixed {
		if _, err := tx.Exec(`INSERT INTO simulation_parameters (simulation_id, parameter_name, parameter_value, unit)
			VALUES (?, ?, ?, ?)`,
			simID, p.Name, p.Value, nullStr(p.Unit)); err != nil {
			return nil, fmt.Errorf("insert parameter %q: %w", p.Name, err)
		}
	}

	// Swept parameter names and their distinct values, reconstructed from
	// the series assignments themselves.
	entries := ix.ListSeries(0)
	sweeps := make(map[string]map[float64]struct{})
	skipped := 0
	for _, e := range entries {
		for _, p := range e.Params {
			if !p.IsNumeric() {
				skipped++
				continue
			}
			vs, ok := sweeps[p.Name]
			if !ok {
				vs = make(map[float64]struct{})
				sweeps[p.Name] = vs
			}
			vs[p.Value] = struct{}{}
		}
	}
	names := make([]string, 0, len(sweeps))
	for n := range sweeps {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		r, err := tx.Exec(`INSERT INTO sweep_configurations (simulation_id, parameter_name) VALUES (?, ?)`, simID, n)
		if err != nil {
			return nil, fmt.Errorf("insert sweep config %q: %w", n, err)
		}
		cfgID, err := r.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("sweep config id: %w", err)
		}
		values := make([]float64, 0, len(sweeps[n]))
		for v := range sweeps[n] {
			values = append(values, v)
		}
		sort.Float64s(values)
		for _, v := range values {
			if _, err := tx.Exec(`INSERT INTO sweep_values (sweep_config_id, value) VALUES (?, ?)`, cfgID, v); err != nil {
				return nil, fmt.Errorf("insert sweep value %s=%g: %w", n, v, err)
			}
		}
	}

	paramStmt, err := tx.Prepare(`INSERT INTO data_series_sweep_params (data_series_id, parameter_name, parameter_value) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare series param insert: %w", err)
	}
	defer paramStmt.Close()
	pointStmt, err := tx.Prepare(`INSERT INTO data_points (data_series_id, x_value, y_value, sequence) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare point insert: %w", err)
	}
	defer pointStmt.Close()
	metricStmt, err := tx.Prepare(`INSERT INTO optimization_metrics (simulation_id, data_series_id, metric_name, metric_value, unit) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare metric insert: %w", err)
	}
	defer metricStmt.Close()

	points, metrics := 0, 0
	for _, e := range entries {
		ser, err := ix.SeriesAt(e.Index)
		if err != nil {
			return nil, err
		}
		r, err := tx.Exec(`INSERT INTO data_series (simulation_id, signal_path) VALUES (?, ?)`, simID, ser.SignalPath)
		if err != nil {
			return nil, fmt.Errorf("insert series %q: %w", ser.SignalPath, err)
		}
		seriesID, err := r.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("series id: %w", err)
		}
		for _, p := range ser.Params {
			if !p.IsNumeric() {
				continue
			}
			if _, err := paramStmt.Exec(seriesID, p.Name, p.Value); err != nil {
				return nil, fmt.Errorf("insert series param %q: %w", p.Name, err)
			}
		}
		for i := range ser.X {
			if _, err := pointStmt.Exec(seriesID, ser.X[i], ser.Y[i], i); err != nil {
				return nil, fmt.Errorf("insert point %d of %q: %w", i, ser.SignalPath, err)
			}
			points++
		}

		if meta.SkipMetrics {
			continue
		}
		// error_percentage is undefined (infinite) when the series has no
		// usable reference samples; such series get no error metric.
		if pct := analysis.RatioError(ser.X, ser.Y, ratio); !math.IsInf(pct, 0) && !math.IsNaN(pct) {
			if _, err := metricStmt.Exec(simID, seriesID, "error_percentage", pct, "%"); err != nil {
				return nil, fmt.Errorf("insert error metric: %w", err)
			}
			metrics++
		}
		if _, err := metricStmt.Exec(simID, seriesID, "gain", analysis.Gain(ser.X, ser.Y), "ratio"); err != nil {
			return nil, fmt.Errorf("insert gain metric: %w", err)
		}
		metrics++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return &ImportResult{
		SimulationID:  simID,
		UID:           uid,
		Series:        len(entries),
		Points:        points,
		Metrics:       metrics,
		SkippedParams: skipped,
	}, nil
}

func getOrCreateCategory(tx *sql.Tx, name, description string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("look up category %q: %w", name, err)
	}
	r, err := tx.Exec(`INSERT INTO categories (name, description) VALUES (?, ?)`, name, nullStr(description))
	if err != nil {
		return 0, fmt.Errorf("insert category %q: %w", name, err)
	}
	id, err = r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category id: %w", err)
	}
	return id, nil
}

// AddCategory creates a category if it does not exist. An existing
// category keeps its original description.
func (s *Store) AddCategory(name, description string) (int64, error) {
	var id int64
	err := retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()
		id, err = getOrCreateCategory(tx, name, description)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	return id, err
}

// AssignCategory tags a simulation with a category, creating the category
// when needed. Assigning the same category twice is a no-op.
func (s *Store) AssignCategory(simulationID int64, category string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		var simID int64
		if err := tx.QueryRow(`SELECT id FROM simulations WHERE id = ?`, simulationID).Scan(&simID); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("simulation %d not found", simulationID)
			}
			return fmt.Errorf("look up simulation %d: %w", simulationID, err)
		}
		catID, err := getOrCreateCategory(tx, category, "")
		if err != nil {
			return err
		}
		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM simulation_categories WHERE simulation_id = ? AND category_id = ?`,
			simID, catID).Scan(&n); err != nil {
			return fmt.Errorf("check category link: %w", err)
		}
		if n == 0 {
			if _, err := tx.Exec(`INSERT INTO simulation_categories (simulation_id, category_id) VALUES (?, ?)`,
				simID, catID); err != nil {
				return fmt.Errorf("link category %q: %w", category, err)
			}
		}
		return tx.Commit()
	})
}

func nullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
