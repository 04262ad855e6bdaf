package sweep

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Options controls how a sweep CSV is loaded.
type Options struct {
	// Grammar picks the header grammar; GrammarAuto detects it from the
	// header row.
	Grammar GrammarKind
	// AssumeSorted skips the per-series re-sort when X is already
	// monotonic. A series found non-monotonic is sorted regardless.
	AssumeSorted bool
	// LowMemory streams rows through a reused record buffer instead of
	// reading the whole file up front. Results are identical either way.
	LowMemory bool
}

// DefaultOptions returns the load defaults used by the CLI.
func DefaultOptions() Options {
	return Options{Grammar: GrammarAuto, AssumeSorted: true}
}

// LoadReport summarizes a load pass and carries its non-fatal warnings.
// Dropped pairs and duplicate overwrites never fail the load; they are
// surfaced here for the caller to present.
type LoadReport struct {
	Grammar    GrammarKind
	Columns    int
	Rows       int
	Pairs      int // column pairs accepted
	Dropped    int // pairs or buckets dropped by pairing
	Duplicates int // canonical keys overwritten by a later pair
	Warnings   []string
}

// pairing is one accepted X/Y column pair; identity comes from the X column.
type pairing struct {
	x, y int
	col  Column
}

// Load reads a wide-format sweep CSV and builds the index.
func Load(path string, opts Options) (*Index, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return load(f, opts)
}

func load(f io.Reader, opts Options) (*Index, *LoadReport, error) {
	r := csv.NewReader(f)
	r.ReuseRecord = opts.LowMemory
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rep := &LoadReport{}

	record, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			rep.Warnings = append(rep.Warnings, "empty file: no header row")
			ix, _ := Build(nil)
			return ix, rep, nil
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	headers := make([]string, len(record))
	copy(headers, record)
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}
	rep.Columns = len(headers)

	kind := opts.Grammar
	if kind == "" || kind == GrammarAuto {
		kind = DetectGrammar(headers)
	}
	rep.Grammar = kind
	g := grammarFor(kind)

	var pairs []pairing
	if kind == GrammarParen {
		pairs = positionalPairs(headers, g, rep)
	} else {
		pairs = stemPairs(headers, g, rep)
	}
	rep.Pairs = len(pairs)

	var xs, ys [][]float64
	if opts.LowMemory {
		xs, ys, err = extractStreaming(r, pairs, rep)
	} else {
		xs, ys, err = extractSlurped(r, pairs, rep)
	}
	if err != nil {
		return nil, nil, err
	}

	list := make([]*Series, len(pairs))
	for i, p := range pairs {
		x, y := xs[i], ys[i]
		if !opts.AssumeSorted || !monotonic(x) {
			sort.Stable(&xySorter{x: x, y: y})
		}
		list[i] = &Series{SignalPath: p.col.SignalPath, Params: p.col.Params, X: x, Y: y}
	}

	ix, dup := Build(list)
	rep.Duplicates = dup
	if dup > 0 {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("%d series share a parameter assignment with an earlier one; the later columns win", dup))
	}
	if rep.Dropped > 0 {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("dropped %d column group(s) that did not form an (X,Y) pair", rep.Dropped))
	}
	if ix.Len() == 0 {
		if kind == GrammarSuffix {
			rep.Warnings = append(rep.Warnings,
				"no (X,Y) pairs found; headers must end with ' X' and ' Y'")
		} else {
			rep.Warnings = append(rep.Warnings,
				"no (X,Y) pairs found; headers must look like '<signal> (<name>=<value>,...) X'")
		}
	}
	return ix, rep, nil
}

// positionalPairs walks the header row with a fixed stride of two and accepts
// only an X column directly followed by its Y column. Anything else is
// dropped and the walk continues at the next pair; a trailing odd column is
// dropped too.
func positionalPairs(headers []string, g Grammar, rep *LoadReport) []pairing {
	cols := make([]Column, len(headers))
	oks := make([]bool, len(headers))
	for i, h := range headers {
		cols[i], oks[i] = g.ParseHeader(h)
	}
	var out []pairing
	for i := 0; i < len(headers); i += 2 {
		if i+1 >= len(headers) {
			rep.Dropped++
			break
		}
		if !oks[i] || !oks[i+1] || cols[i].Axis != AxisX || cols[i+1].Axis != AxisY {
			rep.Dropped++
			continue
		}
		out = append(out, pairing{x: i, y: i + 1, col: cols[i]})
	}
	return out
}

// stemPairs buckets columns by their exact stem in first-seen order; a bucket
// needs both axes, and a repeated axis within a bucket overwrites the earlier
// column.
func stemPairs(headers []string, g Grammar, rep *LoadReport) []pairing {
	type bucket struct {
		col        Column
		x, y       int
		hasX, hasY bool
	}
	var order []string
	buckets := make(map[string]*bucket)
	for i, h := range headers {
		c, ok := g.ParseHeader(h)
		if !ok {
			rep.Dropped++
			continue
		}
		b := buckets[c.Stem]
		if b == nil {
			b = &bucket{col: c}
			buckets[c.Stem] = b
			order = append(order, c.Stem)
		}
		if c.Axis == AxisX {
			b.x, b.hasX = i, true
		} else {
			b.y, b.hasY = i, true
		}
	}
	var out []pairing
	for _, stem := range order {
		b := buckets[stem]
		if !b.hasX || !b.hasY {
			rep.Dropped++
			continue
		}
		out = append(out, pairing{x: b.x, y: b.y, col: b.col})
	}
	return out
}

// extractSlurped reads all remaining rows up front, then extracts each pair.
func extractSlurped(r *csv.Reader, pairs []pairing, rep *LoadReport) (xs, ys [][]float64, err error) {
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	rep.Rows = len(rows)
	xs = make([][]float64, len(pairs))
	ys = make([][]float64, len(pairs))
	for i, p := range pairs {
		for _, row := range rows {
			x, ok := cellFloat(row, p.x)
			if !ok {
				continue
			}
			y, ok := cellFloat(row, p.y)
			if !ok {
				continue
			}
			xs[i] = append(xs[i], x)
			ys[i] = append(ys[i], y)
		}
	}
	return xs, ys, nil
}

// extractStreaming visits each row once and appends to every pair's columns,
// so the reader's record buffer can be reused.
func extractStreaming(r *csv.Reader, pairs []pairing, rep *LoadReport) (xs, ys [][]float64, err error) {
	xs = make([][]float64, len(pairs))
	ys = make([][]float64, len(pairs))
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read rows: %w", err)
		}
		rep.Rows++
		for i, p := range pairs {
			x, ok := cellFloat(row, p.x)
			if !ok {
				continue
			}
			y, ok := cellFloat(row, p.y)
			if !ok {
				continue
			}
			xs[i] = append(xs[i], x)
			ys[i] = append(ys[i], y)
		}
	}
	return xs, ys, nil
}

// cellFloat parses one cell. Missing, blank, non-numeric and non-finite cells
// are all excluded; exclusion is decided per row for a pair, so X and Y stay
// aligned.
func cellFloat(row []string, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(row[i])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func monotonic(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			return false
		}
	}
	return true
}

// xySorter orders a series by X, carrying Y along.
type xySorter struct {
	x, y []float64
}

func (s *xySorter) Len() int           { return len(s.x) }
func (s *xySorter) Less(i, j int) bool { return s.x[i] < s.x[j] }
func (s *xySorter) Swap(i, j int) {
	s.x[i], s.x[j] = s.x[j], s.x[i]
	s.y[i], s.y[j] = s.y[j], s.y[i]
}
