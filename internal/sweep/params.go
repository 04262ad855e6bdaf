package sweep

import (
	"sort"
	"strconv"
	"strings"
)

// Param is one name=value assignment extracted from a sweep header. Value
// holds the parsed float; when the raw token does not parse as a float it is
// retained verbatim in Text and Value is meaningless.
type Param struct {
	Name  string
	Value float64
	Text  string
}

// IsNumeric reports whether the param carries a parsed float value.
func (p Param) IsNumeric() bool { return p.Text == "" }

func (p Param) valueString() string {
	if p.Text != "" {
		return p.Text
	}
	return strconv.FormatFloat(p.Value, 'g', 6, 64)
}

// Params is a canonical parameter assignment: pairs sorted by name ascending,
// names unique. Build one with Canon or ParseParams; a canonical value never
// changes after construction.
type Params []Param

// Canon returns the canonical form of an assignment: sorted by name, and when
// a name repeats the last occurrence wins. Canonicalization is idempotent.
func Canon(ps []Param) Params {
	out := make(Params, 0, len(ps))
	at := make(map[string]int, len(ps))
	for _, p := range ps {
		if i, ok := at[p.Name]; ok {
			out[i] = p
			continue
		}
		at[p.Name] = len(out)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the value assigned to name and whether it is present and numeric.
func (p Params) Get(name string) (float64, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, kv.IsNumeric()
		}
	}
	return 0, false
}

// Key returns the exact identity string used for map lookups. Text tokens are
// quoted so they can never collide with a formatted float.
func (p Params) Key() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(kv.Name)
		b.WriteByte('=')
		if kv.Text != "" {
			b.WriteString(strconv.Quote(kv.Text))
		} else {
			b.WriteString(strconv.FormatFloat(kv.Value, 'g', -1, 64))
		}
	}
	return b.String()
}

// Equal reports canonical equality.
func (p Params) Equal(q Params) bool { return p.Key() == q.Key() }

// String renders the assignment the way the CLI prints it: "a=1, b=2e-07".
func (p Params) String() string {
	parts := make([]string, len(p))
	for i, kv := range p {
		parts[i] = kv.Name + "=" + kv.valueString()
	}
	return strings.Join(parts, ", ")
}

// Compare orders two canonical assignments pair-by-pair: name first, then
// value, with a shorter assignment sorting before a longer one that shares
// its prefix. Numeric values order numerically and sort before text tokens.
func (p Params) Compare(q Params) int {
	n := len(p)
	if len(q) < n {
		n = len(q)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(p[i].Name, q[i].Name); c != 0 {
			return c
		}
		if c := compareValue(p[i], q[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p) < len(q):
		return -1
	case len(p) > len(q):
		return 1
	}
	return 0
}

func compareValue(a, b Param) int {
	an, bn := a.IsNumeric(), b.IsNumeric()
	switch {
	case an && bn:
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	return strings.Compare(a.Text, b.Text)
}

// ParseParams parses a user-supplied parameter string such as
// "Nm_In_W=3.60116e-06, Nm_Out_W=3.9271e-07" into a canonical assignment. A
// surrounding pair of parentheses is tolerated. A value that fails float
// parsing is retained as a text token so token-valued series stay
// addressable; a piece without '=' is a ParseError.
func ParseParams(s string) (Params, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	var ps []Param
	for _, piece := range strings.Split(s, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		name, raw, ok := strings.Cut(piece, "=")
		if !ok {
			return nil, &ParseError{Input: piece, Reason: "expected name=value"}
		}
		ps = append(ps, newParam(name, raw))
	}
	return Canon(ps), nil
}

// parseParamBlock parses the inside of a header parenthesis block. Unlike
// ParseParams it never fails: pieces without '=' are skipped.
func parseParamBlock(inner string) []Param {
	var ps []Param
	for _, piece := range strings.Split(inner, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		name, raw, ok := strings.Cut(piece, "=")
		if !ok {
			continue
		}
		ps = append(ps, newParam(name, raw))
	}
	return ps
}

func newParam(name, raw string) Param {
	name = strings.TrimSpace(name)
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return Param{Name: name, Value: v}
	}
	return Param{Name: name, Text: raw}
}
