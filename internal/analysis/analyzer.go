package analysis

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/KaramelBytes/sweepq/internal/sweep"
)

// Metric names one error statistic for ranking and filtering.
type Metric string

const (
	MetricMinAbs  Metric = "min_error"
	MetricMinPct  Metric = "min_pct_error"
	MetricMeanAbs Metric = "mean_error"
	MetricMeanPct Metric = "mean_pct_error"
	MetricMaxAbs  Metric = "max_error"
)

// ParseMetric validates a metric name from a flag or a tool call.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricMinAbs, MetricMinPct, MetricMeanAbs, MetricMeanPct, MetricMaxAbs:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q (use min_error, min_pct_error, mean_error, mean_pct_error or max_error)", s)
}

// Op is a threshold comparison operator.
type Op string

const (
	OpLE Op = "<="
	OpLT Op = "<"
	OpGE Op = ">="
	OpGT Op = ">"
	OpEQ Op = "=="
)

// eqEpsilon is the tolerance OpEQ uses instead of exact float equality.
const eqEpsilon = 1e-10

// ParseOp validates a comparison operator from a flag or a tool call.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpLE, OpLT, OpGE, OpGT, OpEQ:
		return Op(s), nil
	}
	return "", fmt.Errorf(`unknown operator %q (use "<=", "<", ">=", ">" or "==")`, s)
}

func (op Op) holds(value, threshold float64) bool {
	switch op {
	case OpLT:
		return value < threshold
	case OpGE:
		return value >= threshold
	case OpGT:
		return value > threshold
	case OpEQ:
		return math.Abs(value-threshold) < eqEpsilon
	}
	return value <= threshold
}

// Stats are the error statistics of one series, where error is |y - x| and
// percentage error is |y - x| / |x| * 100 with +Inf wherever x is zero.
// An empty series reports +Inf for every statistic.
type Stats struct {
	MinAbs  float64 // smallest absolute error
	MinAbsX float64 // x at the smallest absolute error
	MinAbsY float64 // y at the smallest absolute error
	MaxAbs  float64
	MeanAbs float64 // mean over all points
	MinPct  float64 // smallest percentage error, +Inf when every x is zero
	MinPctX float64
	MinPctY float64
	MeanPct float64 // mean over the finite percentage errors only
	N       int
}

// Value returns the statistic selected by m.
func (s Stats) Value(m Metric) float64 {
	switch m {
	case MetricMinPct:
		return s.MinPct
	case MetricMeanAbs:
		return s.MeanAbs
	case MetricMeanPct:
		return s.MeanPct
	case MetricMaxAbs:
		return s.MaxAbs
	}
	return s.MinAbs
}

// Compute derives the error statistics of a series in one pass.
//
// The two means are deliberately asymmetric: MeanAbs averages every point,
// while MeanPct averages only the points whose percentage error is finite,
// so a single x=0 sample does not pin the mean at +Inf. When no percentage
// error is finite MeanPct is +Inf. Minimum locations keep the first
// occurrence.
func Compute(s *sweep.Series) Stats {
	inf := math.Inf(1)
	if s.Len() == 0 {
		return Stats{
			MinAbs: inf, MinAbsX: inf, MinAbsY: inf,
			MaxAbs: inf, MeanAbs: inf,
			MinPct: inf, MinPctX: inf, MinPctY: inf,
			MeanPct: inf,
		}
	}

	var (
		minAbs, minPct   = inf, inf
		minAbsI, minPctI int
		maxAbs           float64
		sumAbs, sumPct   float64
		finite           int
	)
	for i := range s.X {
		a := math.Abs(s.Y[i] - s.X[i])
		p := inf
		if s.X[i] != 0 {
			p = a / math.Abs(s.X[i]) * 100
		}
		sumAbs += a
		if !math.IsInf(p, 1) {
			sumPct += p
			finite++
		}
		if a < minAbs {
			minAbs, minAbsI = a, i
		}
		if a > maxAbs {
			maxAbs = a
		}
		if p < minPct {
			minPct, minPctI = p, i
		}
	}

	meanPct := inf
	if finite > 0 {
		meanPct = sumPct / float64(finite)
	}
	return Stats{
		MinAbs:  minAbs,
		MinAbsX: s.X[minAbsI],
		MinAbsY: s.Y[minAbsI],
		MaxAbs:  maxAbs,
		MeanAbs: sumAbs / float64(s.Len()),
		MinPct:  minPct,
		MinPctX: s.X[minPctI],
		MinPctY: s.Y[minPctI],
		MeanPct: meanPct,
		N:       s.Len(),
	}
}

// ErrNoValidSeries is returned by FindMin when no series has a finite value
// for the requested metric.
var ErrNoValidSeries = errors.New("no valid series found")

// Analyzer runs error scans over an index. The index is immutable, so one
// analyzer may be shared across goroutines.
type Analyzer struct {
	ix *sweep.Index

	// Workers caps the goroutines used for whole-index scans. Zero or one
	// scans serially; results are identical either way.
	Workers int
}

// New returns an analyzer over ix.
func New(ix *sweep.Index) *Analyzer {
	return &Analyzer{ix: ix}
}

// Result pairs a series with its statistics.
type Result struct {
	Index  int
	Params sweep.Params
	Stats  Stats
}

// SeriesStats computes the statistics of the selected series.
func (a *Analyzer) SeriesStats(sel sweep.Selector) (Result, error) {
	s, p, err := a.ix.Resolve(sel)
	if err != nil {
		return Result{}, err
	}
	i, _ := a.ix.IndexOf(p)
	return Result{Index: i, Params: p, Stats: Compute(s)}, nil
}

// FindMin returns the series with the strictly smallest value of m. On ties
// the first series in enumeration order wins. When every series reports +Inf
// for m the result is ErrNoValidSeries.
func (a *Analyzer) FindMin(m Metric) (Result, error) {
	stats := a.statsAll()
	best := -1
	bestVal := math.Inf(1)
	for i, st := range stats {
		if v := st.Value(m); v < bestVal {
			best, bestVal = i, v
		}
	}
	if best < 0 {
		return Result{}, ErrNoValidSeries
	}
	p, _ := a.ix.ParamsAt(best)
	return Result{Index: best, Params: p, Stats: stats[best]}, nil
}

// FilterByThreshold returns, in enumeration order, every series whose value
// of m satisfies "value op threshold". A positive limit truncates the result
// after the scan, so the returned prefix is the same regardless of limit.
func (a *Analyzer) FilterByThreshold(m Metric, op Op, threshold float64, limit int) []Result {
	var out []Result
	for i, st := range a.statsAll() {
		if !op.holds(st.Value(m), threshold) {
			continue
		}
		p, _ := a.ix.ParamsAt(i)
		out = append(out, Result{Index: i, Params: p, Stats: st})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SearchByParamValue returns every series whose assignment includes name with
// a numeric value within tolerance of value. Text-valued parameters never
// match.
func (a *Analyzer) SearchByParamValue(name string, value, tolerance float64) []Result {
	var out []Result
	for i := 0; i < a.ix.Len(); i++ {
		p, _ := a.ix.ParamsAt(i)
		v, ok := p.Get(name)
		if !ok || math.Abs(v-value) > tolerance {
			continue
		}
		s, _ := a.ix.SeriesAt(i)
		out = append(out, Result{Index: i, Params: p, Stats: Compute(s)})
	}
	return out
}

// Comparison is one entry of a side-by-side comparison.
type Comparison struct {
	Params sweep.Params
	Stats  Stats
	Err    error
}

// Compare computes statistics for each requested assignment, in request
// order. Assignments that do not resolve carry their lookup error instead of
// statistics.
func (a *Analyzer) Compare(list []sweep.Params) []Comparison {
	out := make([]Comparison, len(list))
	for i, p := range list {
		out[i].Params = sweep.Canon(p)
		s, err := a.ix.SeriesByParams(p)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Stats = Compute(s)
	}
	return out
}

// statsAll computes the statistics of every series, sharding the index
// across Workers goroutines when configured. Shards are contiguous and write
// disjoint slots, so the result does not depend on scheduling.
func (a *Analyzer) statsAll() []Stats {
	n := a.ix.Len()
	out := make([]Stats, n)
	fill := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s, _ := a.ix.SeriesAt(i)
			out[i] = Compute(s)
		}
	}
	w := a.Workers
	if w > n {
		w = n
	}
	if w <= 1 {
		fill(0, n)
		return out
	}
	var wg sync.WaitGroup
	for k := 0; k < w; k++ {
		lo, hi := k*n/w, (k+1)*n/w
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fill(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
	return out
}
