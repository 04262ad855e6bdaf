package sweep

import (
	"fmt"
	"regexp"
	"strings"
)

// Axis labels a data column as independent (X) or dependent (Y).
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
)

// Column is one parsed data-column header.
type Column struct {
	SignalPath string
	Params     Params
	Axis       Axis
	// Stem is the header minus its trailing axis token, used by the suffix
	// grammar to bucket X/Y columns. Empty under the parenthesis grammar.
	Stem string
}

// GrammarKind selects the header grammar used for a file.
type GrammarKind string

const (
	// GrammarAuto detects the grammar from the header row.
	GrammarAuto GrammarKind = "auto"
	// GrammarParen matches "<signal> (<name>=<value>,...) <axis>".
	GrammarParen GrammarKind = "paren"
	// GrammarSuffix matches "<stem> <axis>" by stripping the trailing axis
	// token; parameters come from the first parenthesis block in the stem.
	GrammarSuffix GrammarKind = "suffix"
)

// ParseGrammarKind validates a grammar name from configuration or a flag.
func ParseGrammarKind(s string) (GrammarKind, error) {
	switch GrammarKind(s) {
	case GrammarAuto, GrammarParen, GrammarSuffix:
		return GrammarKind(s), nil
	case "":
		return GrammarAuto, nil
	}
	return "", &InvalidArgumentError{Reason: fmt.Sprintf("unknown grammar %q", s)}
}

// Grammar parses one raw column header. ok is false for headers that are not
// data columns under this grammar.
type Grammar interface {
	Kind() GrammarKind
	ParseHeader(h string) (Column, bool)
}

var (
	parenHeaderRe  = regexp.MustCompile(`^([^(]+)\s*\(([^)]*)\)\s*([XY])`)
	suffixHeaderRe = regexp.MustCompile(`^(.*)\s([XY])$`)
	paramBlockRe   = regexp.MustCompile(`\((.*?)\)`)
)

type parenGrammar struct{}

func (parenGrammar) Kind() GrammarKind { return GrammarParen }

// ParseHeader matches a prefix of the header, so trailing junk after the axis
// letter is tolerated.
func (parenGrammar) ParseHeader(h string) (Column, bool) {
	m := parenHeaderRe.FindStringSubmatch(strings.TrimSpace(h))
	if m == nil {
		return Column{}, false
	}
	return Column{
		SignalPath: strings.TrimSpace(m[1]),
		Params:     Canon(parseParamBlock(m[2])),
		Axis:       Axis(m[3]),
	}, true
}

type suffixGrammar struct{}

func (suffixGrammar) Kind() GrammarKind { return GrammarSuffix }

func (suffixGrammar) ParseHeader(h string) (Column, bool) {
	m := suffixHeaderRe.FindStringSubmatch(strings.TrimSpace(h))
	if m == nil {
		return Column{}, false
	}
	stem := m[1]
	col := Column{Stem: stem, Axis: Axis(m[2])}
	if loc := paramBlockRe.FindStringSubmatchIndex(stem); loc != nil {
		col.Params = Canon(parseParamBlock(stem[loc[2]:loc[3]]))
		col.SignalPath = strings.TrimSpace(stem[:loc[0]] + stem[loc[1]:])
	} else {
		col.Params = Canon(nil)
		col.SignalPath = strings.TrimSpace(stem)
	}
	return col, true
}

func grammarFor(kind GrammarKind) Grammar {
	if kind == GrammarParen {
		return parenGrammar{}
	}
	return suffixGrammar{}
}

// DetectGrammar inspects a header row: the parenthesis form wins if any
// header matches it, otherwise the suffix form applies. The suffix form also
// accepts parenthesis-style headers, so detection only changes how columns
// are paired, not which parameters are read.
func DetectGrammar(headers []string) GrammarKind {
	var g parenGrammar
	for _, h := range headers {
		if _, ok := g.ParseHeader(h); ok {
			return GrammarParen
		}
	}
	return GrammarSuffix
}
