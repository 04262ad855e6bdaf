package sweep

import "sort"

// Series is one sweep combination's paired samples: equal-length X and Y,
// all values finite, X ascending unless the load opted out of sorting.
// Never mutated after build.
type Series struct {
	SignalPath string
	Params     Params
	X, Y       []float64
}

// Len returns the number of points.
func (s *Series) Len() int { return len(s.X) }

// Index maps canonical parameter assignments to series and assigns each a
// stable enumeration position by sorting the assignments lexicographically.
// Built once, read-only afterward; concurrent readers need no locking.
type Index struct {
	byKey map[string]*Series
	order []Params
	pos   map[string]int
}

// Build constructs an index from built series. Later entries sharing a
// canonical assignment overwrite earlier ones; the second return value is the
// number of overwrites.
func Build(list []*Series) (*Index, int) {
	byKey := make(map[string]*Series, len(list))
	dup := 0
	for _, s := range list {
		k := s.Params.Key()
		if _, ok := byKey[k]; ok {
			dup++
		}
		byKey[k] = s
	}
	order := make([]Params, 0, len(byKey))
	for _, s := range byKey {
		order = append(order, s.Params)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Compare(order[j]) < 0 })
	pos := make(map[string]int, len(order))
	for i, p := range order {
		pos[p.Key()] = i
	}
	return &Index{byKey: byKey, order: order, pos: pos}, dup
}

// Len returns the number of series.
func (ix *Index) Len() int { return len(ix.order) }

// Entry is one row of ListSeries output.
type Entry struct {
	Index  int
	Params Params
	Points int
}

// ListSeries returns the series in canonical order, truncated to limit when
// limit > 0.
func (ix *Index) ListSeries(limit int) []Entry {
	n := len(ix.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		p := ix.order[i]
		out[i] = Entry{Index: i, Params: p, Points: ix.byKey[p.Key()].Len()}
	}
	return out
}

// ParamsAt returns the assignment enumerated at i.
func (ix *Index) ParamsAt(i int) (Params, error) {
	if i < 0 || i >= len(ix.order) {
		return nil, &NotFoundError{ByIndex: true, Index: i}
	}
	return ix.order[i], nil
}

// SeriesAt returns the series enumerated at i.
func (ix *Index) SeriesAt(i int) (*Series, error) {
	p, err := ix.ParamsAt(i)
	if err != nil {
		return nil, err
	}
	return ix.byKey[p.Key()], nil
}

// SeriesByParams looks a series up by assignment; the input is canonicalized
// first, so pair order does not matter.
func (ix *Index) SeriesByParams(p Params) (*Series, error) {
	s, ok := ix.byKey[Canon(p).Key()]
	if !ok {
		return nil, &NotFoundError{Params: Canon(p)}
	}
	return s, nil
}

// IndexOf returns the enumeration position of an assignment.
func (ix *Index) IndexOf(p Params) (int, bool) {
	i, ok := ix.pos[Canon(p).Key()]
	return i, ok
}

// Selector picks one series by enumeration index or by parameter assignment.
// Exactly one field must be set.
type Selector struct {
	Index  *int
	Params Params
}

// SelectIndex builds a positional selector.
func SelectIndex(i int) Selector {
	return Selector{Index: &i}
}

// SelectParams builds an assignment selector.
func SelectParams(p Params) Selector {
	return Selector{Params: p}
}

// Resolve returns the selected series and its canonical assignment.
func (ix *Index) Resolve(sel Selector) (*Series, Params, error) {
	if (sel.Index == nil) == (sel.Params == nil) {
		return nil, nil, &InvalidArgumentError{Reason: "specify exactly one of index or params"}
	}
	var (
		s   *Series
		err error
	)
	if sel.Index != nil {
		s, err = ix.SeriesAt(*sel.Index)
	} else {
		s, err = ix.SeriesByParams(sel.Params)
	}
	if err != nil {
		return nil, nil, err
	}
	return s, s.Params, nil
}

// QueryResult is the outcome of a nearest-X lookup. The result is always an
// observed sample; no interpolation is performed.
type QueryResult struct {
	XFound float64
	YFound float64
	Row    int
	Params Params
}

// QueryClosest finds the sample whose X is nearest to x in the selected
// series. On an exact distance tie the right-hand (greater-or-equal)
// neighbor wins.
func (ix *Index) QueryClosest(sel Selector, x float64) (QueryResult, error) {
	s, p, err := ix.Resolve(sel)
	if err != nil {
		return QueryResult{}, err
	}
	if s.Len() == 0 {
		return QueryResult{}, &EmptySeriesError{Params: p}
	}
	i := closestIndex(s.X, x)
	return QueryResult{XFound: s.X[i], YFound: s.Y[i], Row: i, Params: p}, nil
}

// closestIndex returns the position of the value nearest to x in a non-empty
// ascending slice: lower-bound binary search, then a one-step comparison
// against the left neighbor. O(log n).
func closestIndex(xs []float64, x float64) int {
	pos := sort.SearchFloat64s(xs, x)
	switch {
	case pos == 0:
		return 0
	case pos == len(xs):
		return len(xs) - 1
	}
	// Both distances are non-negative here; ties go right.
	if xs[pos]-x <= x-xs[pos-1] {
		return pos
	}
	return pos - 1
}
