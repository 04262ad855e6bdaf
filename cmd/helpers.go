package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/analysis"
	"github.com/KaramelBytes/sweepq/internal/store"
	"github.com/KaramelBytes/sweepq/internal/sweep"
)

// loadOptions translates the effective config into CSV loading options.
func loadOptions() (sweep.Options, error) {
	opts := sweep.DefaultOptions()
	if cfg == nil {
		return opts, nil
	}
	if cfg.Grammar != "" {
		g, err := sweep.ParseGrammarKind(cfg.Grammar)
		if err != nil {
			return opts, err
		}
		opts.Grammar = g
	}
	opts.AssumeSorted = cfg.AssumeSorted
	opts.LowMemory = cfg.LowMemory
	return opts, nil
}

// loadIndex loads a sweep export and relays loader warnings to stderr.
func loadIndex(path string) (*sweep.Index, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	ix, rep, err := sweep.Load(path, opts)
	if err != nil {
		return nil, err
	}
	for _, w := range rep.Warnings {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w)
	}
	return ix, nil
}

func newAnalyzer(ix *sweep.Index) *analysis.Analyzer {
	a := analysis.New(ix)
	if cfg != nil {
		a.Workers = cfg.Workers
	}
	return a
}

// buildSelector turns --index/--params values into a series selector.
// Exactly one of the two must be provided.
func buildSelector(hasIndex bool, index int, params string) (sweep.Selector, error) {
	if hasIndex && params != "" {
		return sweep.Selector{}, fmt.Errorf("provide --index or --params, not both")
	}
	if hasIndex {
		return sweep.SelectIndex(index), nil
	}
	if params != "" {
		p, err := sweep.ParseParams(params)
		if err != nil {
			return sweep.Selector{}, err
		}
		return sweep.SelectParams(p), nil
	}
	return sweep.Selector{}, fmt.Errorf("provide --index or --params")
}

// flagSelector reads the --index/--params flags of cmd into a selector.
func flagSelector(cmd *cobra.Command, index int, params string) (sweep.Selector, error) {
	return buildSelector(cmd.Flags().Changed("index"), index, params)
}

// parseSelector accepts a bare integer index or an assignment string
// "k1=v1,k2=v2".
func parseSelector(s string) (sweep.Selector, error) {
	if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return sweep.SelectIndex(i), nil
	}
	p, err := sweep.ParseParams(s)
	if err != nil {
		return sweep.Selector{}, err
	}
	return sweep.SelectParams(p), nil
}

// printStats prints the error statistics block of one series.
func printStats(s analysis.Stats) {
	fmt.Printf("  Min Absolute Error: %.6e\n", s.MinAbs)
	fmt.Printf("    at x=%.6e, y=%.6e\n", s.MinAbsX, s.MinAbsY)
	fmt.Printf("  Min Percentage Error: %.6f%%\n", s.MinPct)
	fmt.Printf("    at x=%.6e, y=%.6e\n", s.MinPctX, s.MinPctY)
	fmt.Printf("  Mean Absolute Error: %.6e\n", s.MeanAbs)
	fmt.Printf("  Mean Percentage Error: %.6f%%\n", s.MeanPct)
	fmt.Printf("  Max Absolute Error: %.6e\n", s.MaxAbs)
}

// metricFor maps the --percentage flag to the metric it selects.
func metricFor(percentage bool) analysis.Metric {
	if percentage {
		return analysis.MetricMinPct
	}
	return analysis.MetricMinAbs
}

// paramsJSON converts a canonical assignment into a JSON object; text-valued
// parameters keep their token form.
func paramsJSON(ps sweep.Params) map[string]any {
	out := make(map[string]any, len(ps))
	for _, p := range ps {
		if p.IsNumeric() {
			out[p.Name] = p.Value
		} else {
			out[p.Name] = p.Text
		}
	}
	return out
}

// formatSweepParams renders a stored assignment map in canonical name order.
func formatSweepParams(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%g", n, m[n])
	}
	return strings.Join(parts, ", ")
}

// openStore opens the simulation database at path, falling back to the
// configured db_path.
func openStore(path string) (*store.Store, error) {
	if path == "" && cfg != nil {
		path = cfg.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no database path: pass --db or set db_path in the config")
	}
	return store.Open(path)
}
