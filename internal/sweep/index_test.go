package sweep

import (
	"errors"
	"testing"
)

func twoSeriesIndex(t *testing.T) *Index {
	t.Helper()
	ix, dup := Build([]*Series{
		{
			SignalPath: "/I4/Out",
			Params:     Canon([]Param{{Name: "W", Value: 2}}),
			X:          []float64{1, 2, 3},
			Y:          []float64{2, 4, 6},
		},
		{
			SignalPath: "/I4/Out",
			Params:     Canon([]Param{{Name: "W", Value: 1}}),
			X:          []float64{1, 2, 3},
			Y:          []float64{1, 2, 3},
		},
	})
	if dup != 0 {
		t.Fatalf("unexpected duplicates: %d", dup)
	}
	return ix
}

func TestBuildOrdersAndDedupes(t *testing.T) {
	p := Canon([]Param{{Name: "W", Value: 1}})
	ix, dup := Build([]*Series{
		{Params: Canon([]Param{{Name: "W", Value: 2}}), X: []float64{1}, Y: []float64{1}},
		{Params: p, X: []float64{1}, Y: []float64{10}},
		{Params: p, X: []float64{1}, Y: []float64{20}},
	})
	if dup != 1 {
		t.Fatalf("duplicates = %d, want 1", dup)
	}
	if ix.Len() != 2 {
		t.Fatalf("len = %d, want 2", ix.Len())
	}
	first, err := ix.ParamsAt(0)
	if err != nil {
		t.Fatal(err)
	}
	if first.String() != "W=1" {
		t.Errorf("enumeration starts at %q, want W=1", first.String())
	}
	s, err := ix.SeriesByParams(p)
	if err != nil {
		t.Fatal(err)
	}
	if s.Y[0] != 20 {
		t.Errorf("Y = %v, want the later series to win", s.Y)
	}
}

func TestEnumerationRoundTrip(t *testing.T) {
	ix := twoSeriesIndex(t)
	for i := 0; i < ix.Len(); i++ {
		p, err := ix.ParamsAt(i)
		if err != nil {
			t.Fatal(err)
		}
		j, ok := ix.IndexOf(p)
		if !ok || j != i {
			t.Fatalf("IndexOf(ParamsAt(%d)) = %d, %v", i, j, ok)
		}
		s, err := ix.SeriesAt(i)
		if err != nil {
			t.Fatal(err)
		}
		if !s.Params.Equal(p) {
			t.Fatalf("series %d carries %q, enumeration says %q", i, s.Params, p)
		}
	}
}

func TestListSeriesLimit(t *testing.T) {
	ix := twoSeriesIndex(t)
	if got := ix.ListSeries(0); len(got) != 2 {
		t.Fatalf("ListSeries(0) returned %d entries, want all", len(got))
	}
	got := ix.ListSeries(1)
	if len(got) != 1 {
		t.Fatalf("ListSeries(1) returned %d entries", len(got))
	}
	if got[0].Index != 0 || got[0].Points != 3 {
		t.Errorf("entry = %+v", got[0])
	}
}

func TestLookupErrors(t *testing.T) {
	ix := twoSeriesIndex(t)

	var nf *NotFoundError
	_, err := ix.SeriesAt(5)
	if !errors.As(err, &nf) || !nf.ByIndex {
		t.Fatalf("SeriesAt(5) error = %v", err)
	}
	_, err = ix.SeriesByParams(Canon([]Param{{Name: "W", Value: 9}}))
	if !errors.As(err, &nf) || nf.ByIndex {
		t.Fatalf("SeriesByParams error = %v", err)
	}

	var inv *InvalidArgumentError
	if _, _, err := ix.Resolve(Selector{}); !errors.As(err, &inv) {
		t.Fatalf("empty selector error = %v", err)
	}
	i := 0
	both := Selector{Index: &i, Params: Canon([]Param{{Name: "W", Value: 1}})}
	if _, _, err := ix.Resolve(both); !errors.As(err, &inv) {
		t.Fatalf("double selector error = %v", err)
	}
}

func TestResolve(t *testing.T) {
	ix := twoSeriesIndex(t)
	s, p, err := ix.Resolve(SelectIndex(1))
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "W=2" || s.Y[2] != 6 {
		t.Fatalf("Resolve(index 1) = %q, %v", p, s.Y)
	}
	s, _, err = ix.Resolve(SelectParams(Params{{Name: "W", Value: 1}}))
	if err != nil {
		t.Fatal(err)
	}
	if s.Y[2] != 3 {
		t.Fatalf("Resolve(params) picked %v", s.Y)
	}
}

func TestQueryClosest(t *testing.T) {
	ix := twoSeriesIndex(t)
	testCases := []struct {
		name  string
		x     float64
		wantX float64
		wantY float64
		row   int
	}{
		{name: "between samples", x: 2.4, wantX: 2, wantY: 4, row: 1},
		{name: "exact hit", x: 3, wantX: 3, wantY: 6, row: 2},
		{name: "below range", x: -10, wantX: 1, wantY: 2, row: 0},
		{name: "above range", x: 10, wantX: 3, wantY: 6, row: 2},
		{name: "tie goes right", x: 1.5, wantX: 2, wantY: 4, row: 1},
	}
	sel := SelectParams(Canon([]Param{{Name: "W", Value: 2}}))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ix.QueryClosest(sel, tc.x)
			if err != nil {
				t.Fatalf("QueryClosest: %v", err)
			}
			if got.XFound != tc.wantX || got.YFound != tc.wantY || got.Row != tc.row {
				t.Fatalf("got %+v, want x=%g y=%g row=%d", got, tc.wantX, tc.wantY, tc.row)
			}
			if got.Params.String() != "W=2" {
				t.Errorf("result params = %q", got.Params)
			}
		})
	}
}

func TestQueryClosestSinglePoint(t *testing.T) {
	ix, _ := Build([]*Series{{
		Params: Canon([]Param{{Name: "W", Value: 1}}),
		X:      []float64{5},
		Y:      []float64{50},
	}})
	for _, x := range []float64{-100, 5, 100} {
		got, err := ix.QueryClosest(SelectIndex(0), x)
		if err != nil {
			t.Fatalf("QueryClosest(%g): %v", x, err)
		}
		if got.XFound != 5 || got.YFound != 50 || got.Row != 0 {
			t.Fatalf("QueryClosest(%g) = %+v", x, got)
		}
	}
}

func TestQueryClosestEmptySeries(t *testing.T) {
	ix, _ := Build([]*Series{{Params: Canon([]Param{{Name: "W", Value: 1}})}})
	var empty *EmptySeriesError
	if _, err := ix.QueryClosest(SelectIndex(0), 1); !errors.As(err, &empty) {
		t.Fatalf("error = %v, want EmptySeriesError", err)
	}
}

func TestClosestIndex(t *testing.T) {
	xs := []float64{1, 2, 4, 8}
	testCases := []struct {
		x    float64
		want int
	}{
		{0, 0},
		{1, 0},
		{1.4, 0},
		{1.5, 1}, // equidistant: the right neighbor wins
		{3, 2},
		{6, 3},
		{8, 3},
		{99, 3},
	}
	for _, tc := range testCases {
		if got := closestIndex(xs, tc.x); got != tc.want {
			t.Errorf("closestIndex(%g) = %d, want %d", tc.x, got, tc.want)
		}
	}
}
