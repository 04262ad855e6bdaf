package sweep

import (
	"errors"
	"testing"
)

func TestCanon(t *testing.T) {
	testCases := []struct {
		name string
		in   []Param
		want string
	}{
		{
			name: "sorts by name",
			in:   []Param{{Name: "b", Value: 2}, {Name: "a", Value: 1}},
			want: "a=1, b=2",
		},
		{
			name: "duplicate name keeps last",
			in:   []Param{{Name: "w", Value: 1}, {Name: "w", Value: 2}},
			want: "w=2",
		},
		{
			name: "empty",
			in:   nil,
			want: "",
		},
		{
			name: "text token kept",
			in:   []Param{{Name: "corner", Text: "tt"}, {Name: "a", Value: 3}},
			want: "a=3, corner=tt",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Canon(tc.in)
			if got.String() != tc.want {
				t.Fatalf("Canon(%v) = %q, want %q", tc.in, got.String(), tc.want)
			}
		})
	}
}

func TestCanonIdempotent(t *testing.T) {
	in := []Param{{Name: "z", Value: 9}, {Name: "a", Text: "fast"}, {Name: "m", Value: -1}}
	once := Canon(in)
	twice := Canon(once)
	if !once.Equal(twice) {
		t.Fatalf("Canon not idempotent: %q vs %q", once.Key(), twice.Key())
	}
}

func TestParamsCompare(t *testing.T) {
	testCases := []struct {
		name string
		a, b Params
		want int
	}{
		{
			name: "equal",
			a:    Canon([]Param{{Name: "a", Value: 1}}),
			b:    Canon([]Param{{Name: "a", Value: 1}}),
			want: 0,
		},
		{
			name: "by value",
			a:    Canon([]Param{{Name: "a", Value: 1}}),
			b:    Canon([]Param{{Name: "a", Value: 2}}),
			want: -1,
		},
		{
			name: "by name before value",
			a:    Canon([]Param{{Name: "a", Value: 9}}),
			b:    Canon([]Param{{Name: "b", Value: 0}}),
			want: -1,
		},
		{
			name: "prefix sorts first",
			a:    Canon([]Param{{Name: "a", Value: 1}}),
			b:    Canon([]Param{{Name: "a", Value: 1}, {Name: "b", Value: 2}}),
			want: -1,
		},
		{
			name: "numeric before text",
			a:    Canon([]Param{{Name: "a", Value: 5}}),
			b:    Canon([]Param{{Name: "a", Text: "slow"}}),
			want: -1,
		},
		{
			name: "text vs text",
			a:    Canon([]Param{{Name: "a", Text: "fast"}}),
			b:    Canon([]Param{{Name: "a", Text: "slow"}}),
			want: -1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Compare(tc.b); got != tc.want {
				t.Fatalf("Compare = %d, want %d", got, tc.want)
			}
			if got := tc.b.Compare(tc.a); got != -tc.want {
				t.Fatalf("reverse Compare = %d, want %d", got, -tc.want)
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "typical",
			in:   "Nm_In_W=3.60116e-06, Nm_Out_W=3.9271e-07",
			want: "Nm_In_W=3.60116e-06, Nm_Out_W=3.9271e-07",
		},
		{
			name: "unsorted input canonicalized",
			in:   "b=2,a=1",
			want: "a=1, b=2",
		},
		{
			name: "surrounding parens tolerated",
			in:   "(w=1e-06, l=5.4e-07)",
			want: "l=5.4e-07, w=1e-06",
		},
		{
			name: "whitespace trimmed",
			in:   "  a = 1 ,  b =  2e-07 ",
			want: "a=1, b=2e-07",
		},
		{
			name: "empty pieces skipped",
			in:   "a=1,,b=2,",
			want: "a=1, b=2",
		},
		{
			name: "non-float value kept as token",
			in:   "a=1,corner=ss",
			want: "a=1, corner=ss",
		},
		{
			name: "empty string is the empty assignment",
			in:   "",
			want: "",
		},
		{
			name:    "piece without equals",
			in:      "a=1,bogus",
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseParams(tc.in)
			if tc.wantErr {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("error = %v, want ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseParams(%q): %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("ParseParams(%q) = %q, want %q", tc.in, got.String(), tc.want)
			}
		})
	}
}

func TestKeyDistinguishesTextTokens(t *testing.T) {
	// A crafted token must not collide with a genuine two-pair assignment.
	tricky := Canon([]Param{{Name: "a", Text: "1;b=2"}})
	plain := Canon([]Param{{Name: "a", Value: 1}, {Name: "b", Value: 2}})
	if tricky.Key() == plain.Key() {
		t.Fatalf("key collision: %q", tricky.Key())
	}
}

func TestParamsString(t *testing.T) {
	p := Canon([]Param{{Name: "Nm_Out_W", Value: 3.9271e-07}, {Name: "Nm_In_W", Value: 3.60116e-06}})
	want := "Nm_In_W=3.60116e-06, Nm_Out_W=3.9271e-07"
	if p.String() != want {
		t.Fatalf("String = %q, want %q", p.String(), want)
	}
}

func TestParamsGet(t *testing.T) {
	p := Canon([]Param{{Name: "w", Value: 2.4e-07}, {Name: "corner", Text: "ff"}})
	if v, ok := p.Get("w"); !ok || v != 2.4e-07 {
		t.Fatalf("Get(w) = %v, %v", v, ok)
	}
	if _, ok := p.Get("corner"); ok {
		t.Fatalf("Get(corner) should not report a numeric value")
	}
	if _, ok := p.Get("missing"); ok {
		t.Fatalf("Get(missing) should be absent")
	}
}
