package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// SimulationSummary is one search hit.
type SimulationSummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	CircuitName string   `json:"circuit_name"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories"`
}

// SearchSimulations finds simulations by partial name and circuit match and
// by category membership; a simulation matches when it carries any of the
// listed categories. A limit of zero returns everything.
func (s *Store) SearchSimulations(name, circuit string, categories []string, limit int) ([]SimulationSummary, error) {
	q := `SELECT DISTINCT s.id, s.name, s.circuit_name, s.description FROM simulations s`
	var conds []string
	var args []any
	if len(categories) > 0 {
		q += ` JOIN simulation_categories sc ON sc.simulation_id = s.id
			JOIN categories c ON c.id = sc.category_id`
		ph := strings.Repeat("?,", len(categories))
		conds = append(conds, fmt.Sprintf("c.name IN (%s)", ph[:len(ph)-1]))
		for _, cat := range categories {
			args = append(args, cat)
		}
	}
	if name != "" {
		conds = append(conds, "s.name LIKE ?")
		args = append(args, "%"+name+"%")
	}
	if circuit != "" {
		conds = append(conds, "s.circuit_name LIKE ?")
		args = append(args, "%"+circuit+"%")
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY s.id"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search simulations: %w", err)
	}
	defer rows.Close()

	var out []SimulationSummary
	for rows.Next() {
		var sum SimulationSummary
		var desc sql.NullString
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.CircuitName, &desc); err != nil {
			return nil, fmt.Errorf("scan simulation: %w", err)
		}
		sum.Description = desc.String
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulations: %w", err)
	}
	for i := range out {
		cats, err := s.simCategories(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Categories = cats
	}
	return out, nil
}

// MetricHit is one metric row joined with its simulation and, when the
// metric belongs to a series, that series' identity and assignment.
type MetricHit struct {
	SimulationID   int64              `json:"simulation_id"`
	SimulationName string             `json:"simulation_name"`
	CircuitName    string             `json:"circuit_name"`
	MetricName     string             `json:"metric_name"`
	MetricValue    float64            `json:"metric_value"`
	MetricUnit     string             `json:"metric_unit,omitempty"`
	SignalPath     string             `json:"signal_path,omitempty"`
	DataSeriesID   int64              `json:"data_series_id,omitempty"`
	SweepParams    map[string]float64 `json:"sweep_parameters,omitempty"`
}

// FilterByMetric returns metric rows named metric within the given bounds,
// best (lowest) value first. Both bounds are inclusive; nil means unbounded.
func (s *Store) FilterByMetric(metric string, minValue, maxValue *float64, limit int) ([]MetricHit, error) {
	q := `SELECT s.id, s.name, s.circuit_name, m.metric_name, m.metric_value, m.unit, m.data_series_id, d.signal_path
		FROM optimization_metrics m
		JOIN simulations s ON s.id = m.simulation_id
		LEFT JOIN data_series d ON d.id = m.data_series_id
		WHERE m.metric_name = ?`
	args := []any{metric}
	if minValue != nil {
		q += " AND m.metric_value >= ?"
		args = append(args, *minValue)
	}
	if maxValue != nil {
		q += " AND m.metric_value <= ?"
		args = append(args, *maxValue)
	}
	q += " ORDER BY m.metric_value"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("filter by metric: %w", err)
	}
	defer rows.Close()

	var out []MetricHit
	for rows.Next() {
		var hit MetricHit
		var unit, path sql.NullString
		var seriesID sql.NullInt64
		if err := rows.Scan(&hit.SimulationID, &hit.SimulationName, &hit.CircuitName,
			&hit.MetricName, &hit.MetricValue, &unit, &seriesID, &path); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		hit.MetricUnit = unit.String
		if seriesID.Valid {
			hit.DataSeriesID = seriesID.Int64
			hit.SignalPath = path.String
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	for i := range out {
		if out[i].DataSeriesID == 0 {
			continue
		}
		params, err := s.seriesParams(out[i].DataSeriesID)
		if err != nil {
			return nil, err
		}
		out[i].SweepParams = params
	}
	return out, nil
}

// Assumptions are the optional operating-point values recorded with a
// simulation.
type Assumptions struct {
	VDD         *float64 `json:"vdd"`
	VT          *float64 `json:"vt"`
	Temperature *float64 `json:"temperature"`
}

// MetricValue is a named metric in a simulation detail view.
type MetricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// SimulationDetail is the full record of one archived simulation.
type SimulationDetail struct {
	ID          int64         `json:"id"`
	UID         string        `json:"uid"`
	Name        string        `json:"name"`
	CircuitName string        `json:"circuit_name"`
	Description string        `json:"description,omitempty"`
	CreatedAt   string        `json:"created_at"`
	Assumptions Assumptions   `json:"assumptions"`
	Categories  []string      `json:"categories"`
	Parameters  []FixedParam  `json:"parameters"`
	SweepParams []string      `json:"sweep_parameters"`
	Metrics     []MetricValue `json:"metrics"`
}

// SimulationDetails loads everything recorded for one simulation.
func (s *Store) SimulationDetails(id int64) (*SimulationDetail, error) {
	var d SimulationDetail
	var desc sql.NullString
	var vdd, vt, temp sql.NullFloat64
	err := s.db.QueryRow(`SELECT id, uid, name, circuit_name, description, created_at, vdd, vt, temperature
		FROM simulations WHERE id = ?`, id).
		Scan(&d.ID, &d.UID, &d.Name, &d.CircuitName, &desc, &d.CreatedAt, &vdd, &vt, &temp)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("simulation %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load simulation %d: %w", id, err)
	}
	d.Description = desc.String
	d.Assumptions = Assumptions{VDD: floatPtr(vdd), VT: floatPtr(vt), Temperature: floatPtr(temp)}

	if d.Categories, err = s.simCategories(id); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT parameter_name, parameter_value, unit FROM simulation_parameters
		WHERE simulation_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p FixedParam
		var unit sql.NullString
		if err := rows.Scan(&p.Name, &p.Value, &unit); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		p.Unit = unit.String
		d.Parameters = append(d.Parameters, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parameters: %w", err)
	}

	srows, err := s.db.Query(`SELECT parameter_name FROM sweep_configurations
		WHERE simulation_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("load sweep configurations: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var n string
		if err := srows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan sweep configuration: %w", err)
		}
		d.SweepParams = append(d.SweepParams, n)
	}
	if err := srows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep configurations: %w", err)
	}

	mrows, err := s.db.Query(`SELECT metric_name, metric_value, unit FROM optimization_metrics
		WHERE simulation_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m MetricValue
		var unit sql.NullString
		if err := mrows.Scan(&m.Name, &m.Value, &unit); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m.Unit = unit.String
		d.Metrics = append(d.Metrics, m)
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return &d, nil
}

// SeriesPoint is one stored (x, y) sample.
type SeriesPoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Sequence int     `json:"sequence"`
}

// SeriesRecord is a stored series with its assignment and points.
type SeriesRecord struct {
	SeriesID    int64              `json:"series_id"`
	SignalPath  string             `json:"signal_path"`
	SweepParams map[string]float64 `json:"sweep_parameters"`
	Points      []SeriesPoint      `json:"data_points"`
}

// DataSeries loads the series of a simulation. An empty signalPath matches
// every signal; sweepFilters keeps only series whose assignment carries
// exactly the given values (a missing name never matches).
func (s *Store) DataSeries(simulationID int64, signalPath string, sweepFilters map[string]float64) ([]SeriesRecord, error) {
	q := `SELECT id, signal_path FROM data_series WHERE simulation_id = ?`
	args := []any{simulationID}
	if signalPath != "" {
		q += " AND signal_path = ?"
		args = append(args, signalPath)
	}
	q += " ORDER BY id"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	var recs []SeriesRecord
	for rows.Next() {
		var rec SeriesRecord
		if err := rows.Scan(&rec.SeriesID, &rec.SignalPath); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}

	var out []SeriesRecord
	for _, rec := range recs {
		params, err := s.seriesParams(rec.SeriesID)
		if err != nil {
			return nil, err
		}
		if !matchesFilters(params, sweepFilters) {
			continue
		}
		rec.SweepParams = params
		if rec.Points, err = s.seriesPoints(rec.SeriesID); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func matchesFilters(params, filters map[string]float64) bool {
	for name, want := range filters {
		got, ok := params[name]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// CategoryInfo is one category with its usage count.
type CategoryInfo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	SimulationCount int64  `json:"simulation_count"`
}

// ListCategories returns every category, alphabetically.
func (s *Store) ListCategories() ([]CategoryInfo, error) {
	rows, err := s.db.Query(`SELECT c.id, c.name, c.description,
		(SELECT COUNT(*) FROM simulation_categories sc WHERE sc.category_id = c.id)
		FROM categories c ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryInfo
	for rows.Next() {
		var c CategoryInfo
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.SimulationCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Description = desc.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// MetricStats aggregates one metric across the archive.
type MetricStats struct {
	MetricName string  `json:"metric_name"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	Count      int64   `json:"count"`
}

// MetricStatistics aggregates metric rows named metric, optionally
// restricted to circuits whose name contains circuit.
func (s *Store) MetricStatistics(metric, circuit string) (MetricStats, error) {
	q := `SELECT MIN(m.metric_value), MAX(m.metric_value), AVG(m.metric_value), COUNT(m.id)
		FROM optimization_metrics m`
	args := []any{}
	if circuit != "" {
		q += ` JOIN simulations s ON s.id = m.simulation_id
			WHERE m.metric_name = ? AND s.circuit_name LIKE ?`
		args = append(args, metric, "%"+circuit+"%")
	} else {
		q += ` WHERE m.metric_name = ?`
		args = append(args, metric)
	}

	st := MetricStats{MetricName: metric}
	var min, max, avg sql.NullFloat64
	if err := s.db.QueryRow(q, args...).Scan(&min, &max, &avg, &st.Count); err != nil {
		return MetricStats{}, fmt.Errorf("metric statistics: %w", err)
	}
	st.Min, st.Max, st.Avg = min.Float64, max.Float64, avg.Float64
	return st, nil
}

func (s *Store) simCategories(simID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT c.name FROM categories c
		JOIN simulation_categories sc ON sc.category_id = c.id
		WHERE sc.simulation_id = ? ORDER BY c.name`, simID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (s *Store) seriesParams(seriesID int64) (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT parameter_name, parameter_value FROM data_series_sweep_params
		WHERE data_series_id = ?`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load series params: %w", err)
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var n string
		var v float64
		if err := rows.Scan(&n, &v); err != nil {
			return nil, fmt.Errorf("scan series param: %w", err)
		}
		out[n] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series params: %w", err)
	}
	return out, nil
}

func (s *Store) seriesPoints(seriesID int64) ([]SeriesPoint, error) {
	rows, err := s.db.Query(`SELECT x_value, y_value, sequence FROM data_points
		WHERE data_series_id = ? ORDER BY sequence`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	defer rows.Close()
	var out []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.X, &p.Y, &p.Sequence); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}
	return out, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
