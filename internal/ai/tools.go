package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/sweepq/internal/analysis"
	"github.com/KaramelBytes/sweepq/internal/sweep"
)

// Toolset binds the assistant's function-calling surface to a loaded sweep
// index. Every tool returns plain text for the model to read; failures are
// reported in-band as "Error: ..." strings rather than Go errors, so the
// model can recover and rephrase.
type Toolset struct {
	ix *sweep.Index
	an *analysis.Analyzer
}

// NewToolset builds the tool surface over ix. workers > 1 shards the
// full-index scans behind find_minimum_error and filter_by_error_threshold.
func NewToolset(ix *sweep.Index, workers int) *Toolset {
	an := analysis.New(ix)
	an.Workers = workers
	return &Toolset{ix: ix, an: an}
}

// Definitions returns the tool declarations sent with each tool-selection
// request.
func (t *Toolset) Definitions() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "list_all_series",
				Description: "List all available parameter series in the database. Returns a list of indices and their parameters.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"limit": map[string]any{
							"type":        "integer",
							"description": "Maximum number of series to return (optional)",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "show_series",
				Description: "Show detailed information about a specific parameter series including sample data points.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{
							"type":        "integer",
							"description": "Index of the series to show",
						},
						"sample": map[string]any{
							"type":        "integer",
							"description": "Number of sample data points to display (default: 10)",
						},
					},
					"required": []string{"index"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "query_value",
				Description: "Query the closest Y value for a given X value in a specific parameter series. Use this when the user asks 'what is Y when X is...' or similar queries.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{
							"type":        "integer",
							"description": "Index of the series to query",
						},
						"params": map[string]any{
							"type":        "string",
							"description": "Parameter string like 'W=3.60116e-06, L=3.9271e-07'",
						},
						"x": map[string]any{
							"type":        "number",
							"description": "X value to query",
						},
					},
					"required": []string{"x"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "calculate_error",
				Description: "Calculate error statistics for a specific parameter series. Shows min, max, mean absolute and percentage errors.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{
							"type":        "integer",
							"description": "Index of the series",
						},
						"params": map[string]any{
							"type":        "string",
							"description": "Parameter string like 'W=3.60116e-06, L=3.9271e-07'",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "find_minimum_error",
				Description: "Find the parameter combination that has the minimum error across all series. Use when user asks 'what parameters give the best accuracy' or 'which parameters have lowest error'.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"use_percentage": map[string]any{
							"type":        "boolean",
							"description": "Whether to use percentage error instead of absolute error (default: false)",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "filter_by_error_threshold",
				Description: "Find all parameter series that meet an error threshold criteria. Use when user asks 'which parameters have error less than X' or 'show me all series with error below Y'.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"threshold": map[string]any{
							"type":        "number",
							"description": "Error threshold value",
						},
						"use_percentage": map[string]any{
							"type":        "boolean",
							"description": "Whether to use percentage error (default: false)",
						},
						"operator": map[string]any{
							"type":        "string",
							"enum":        []string{"<=", "<", ">=", ">", "=="},
							"description": "Comparison operator (default: <=)",
						},
						"limit": map[string]any{
							"type":        "integer",
							"description": "Maximum number of results to return",
						},
					},
					"required": []string{"threshold"},
				},
			},
		},
	}
}

// Execute runs the named tool with JSON-encoded arguments and returns its
// text result.
func (t *Toolset) Execute(name string, args json.RawMessage) string {
	switch name {
	case "list_all_series":
		var a struct {
			Limit int `json:"limit"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return "Error: " + err.Error()
		}
		return t.listAllSeries(a.Limit)
	case "show_series":
		var a struct {
			Index  int  `json:"index"`
			Sample *int `json:"sample"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return "Error: " + err.Error()
		}
		sample := 10
		if a.Sample != nil {
			sample = *a.Sample
		}
		return t.showSeries(a.Index, sample)
	case "query_value":
		var a struct {
			Index  *int    `json:"index"`
			Params *string `json:"params"`
			X      float64 `json:"x"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return "Error: " + err.Error()
		}
		return t.queryValue(a.Index, a.Params, a.X)
	case "calculate_error":
		var a struct {
			Index  *int    `json:"index"`
			Params *string `json:"params"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return "Error: " + err.Error()
		}
		return t.calculateError(a.Index, a.Params)
	case "find_minimum_error":
		var a struct {
			UsePercentage bool `json:"use_percentage"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return "Error: " + err.Error()
		}
		return t.findMinimumError(a.UsePercentage)
	case "filter_by_error_threshold":
		var a struct {
			Threshold     float64 `json:"threshold"`
			UsePercentage bool    `json:"use_percentage"`
			Operator      string  `json:"operator"`
			Limit         *int    `json:"limit"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return "Error: " + err.Error()
		}
		return t.filterByErrorThreshold(a.Threshold, a.UsePercentage, a.Operator, a.Limit)
	default:
		return fmt.Sprintf("Error: Unknown function '%s'", name)
	}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func (t *Toolset) listAllSeries(limit int) string {
	entries := t.ix.ListSeries(limit)
	if len(entries) == 0 {
		return "No series available."
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%d: %s", e.Index, e.Params)
	}
	return strings.Join(lines, "\n")
}

func (t *Toolset) showSeries(index, sample int) string {
	if index < 0 || index >= t.ix.Len() {
		return fmt.Sprintf("Error: Index %d out of range (0-%d)", index, t.ix.Len()-1)
	}
	ser, err := t.ix.SeriesAt(index)
	if err != nil {
		return "Error: " + err.Error()
	}
	n := sample
	if n > ser.Len() {
		n = ser.Len()
	}
	lines := []string{
		fmt.Sprintf("Series Index: %d", index),
		fmt.Sprintf("Parameters: %s", ser.Params),
		fmt.Sprintf("Data Points: %d", ser.Len()),
		"",
		fmt.Sprintf("Sample (first %d points):", n),
	}
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("  x=%.6e, y=%.6e", ser.X[i], ser.Y[i]))
	}
	return strings.Join(lines, "\n")
}

func (t *Toolset) queryValue(index *int, params *string, x float64) string {
	sel, errMsg := t.selector(index, params)
	if errMsg != "" {
		return errMsg
	}
	res, err := t.ix.QueryClosest(sel, x)
	if err != nil {
		return "Error: " + err.Error()
	}
	out := map[string]any{
		"x_query": x,
		"x_found": res.XFound,
		"y_found": res.YFound,
		"row":     res.Row,
		"params":  paramsObject(res.Params),
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "Error: " + err.Error()
	}
	return string(b)
}

func (t *Toolset) calculateError(index *int, params *string) string {
	sel, errMsg := t.selector(index, params)
	if errMsg != "" {
		return errMsg
	}
	res, err := t.an.SeriesStats(sel)
	if err != nil {
		return "Error: " + err.Error()
	}
	st := res.Stats
	lines := []string{
		fmt.Sprintf("Parameters: %s", res.Params),
		"",
		fmt.Sprintf("Minimum Absolute Error: %.6e", st.MinAbs),
		fmt.Sprintf("  at x=%.6e, y=%.6e", st.MinAbsX, st.MinAbsY),
		"",
		fmt.Sprintf("Minimum Percentage Error: %.6f%%", st.MinPct),
		fmt.Sprintf("  at x=%.6e, y=%.6e", st.MinPctX, st.MinPctY),
		"",
		fmt.Sprintf("Mean Absolute Error: %.6e", st.MeanAbs),
		fmt.Sprintf("Mean Percentage Error: %.6f%%", st.MeanPct),
		fmt.Sprintf("Max Absolute Error: %.6e", st.MaxAbs),
	}
	return strings.Join(lines, "\n")
}

func (t *Toolset) findMinimumError(usePercentage bool) string {
	metric := analysis.MetricMinAbs
	if usePercentage {
		metric = analysis.MetricMinPct
	}
	res, err := t.an.FindMin(metric)
	if err != nil {
		return "Error: " + err.Error()
	}
	st := res.Stats
	lines := []string{
		"Best Parameters Found:",
		fmt.Sprintf("  %s", res.Params),
		"",
		fmt.Sprintf("Minimum Absolute Error: %.6e", st.MinAbs),
		fmt.Sprintf("  at x=%.6e, y=%.6e", st.MinAbsX, st.MinAbsY),
		"",
		fmt.Sprintf("Minimum Percentage Error: %.6f%%", st.MinPct),
		fmt.Sprintf("  at x=%.6e, y=%.6e", st.MinPctX, st.MinPctY),
		"",
		fmt.Sprintf("Mean Absolute Error: %.6e", st.MeanAbs),
		fmt.Sprintf("Mean Percentage Error: %.6f%%", st.MeanPct),
	}
	return strings.Join(lines, "\n")
}

func (t *Toolset) filterByErrorThreshold(threshold float64, usePercentage bool, operator string, limit *int) string {
	metric := analysis.MetricMinAbs
	errorType := "absolute"
	if usePercentage {
		metric = analysis.MetricMinPct
		errorType = "percentage"
	}
	if operator == "" {
		operator = "<="
	}
	op, err := analysis.ParseOp(operator)
	if err != nil {
		return "Error: " + err.Error()
	}
	results := t.an.FilterByThreshold(metric, op, threshold, 0)

	lines := []string{
		fmt.Sprintf("Found %d series where %s error %s %g", len(results), errorType, op, threshold),
		"",
	}
	displayLimit := len(results)
	if limit != nil && *limit < displayLimit {
		displayLimit = *limit
	}
	for i, r := range results[:displayLimit] {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, r.Params))
		lines = append(lines, fmt.Sprintf("   Min Error: %.6e, Min %% Error: %.6f%%", r.Stats.MinAbs, r.Stats.MinPct))
	}
	if len(results) > displayLimit {
		lines = append(lines, fmt.Sprintf("\n... and %d more", len(results)-displayLimit))
	}
	return strings.Join(lines, "\n")
}

// selector builds a series selector from the optional index/params tool
// arguments; the second return value is a non-empty in-band error message
// when neither is usable.
func (t *Toolset) selector(index *int, params *string) (sweep.Selector, string) {
	if index != nil {
		return sweep.SelectIndex(*index), ""
	}
	if params != nil {
		ps, err := sweep.ParseParams(*params)
		if err != nil {
			return sweep.Selector{}, "Error: " + err.Error()
		}
		return sweep.SelectParams(ps), ""
	}
	return sweep.Selector{}, "Error: Must provide either 'index' or 'params'"
}

func paramsObject(ps sweep.Params) map[string]any {
	m := make(map[string]any, len(ps))
	for _, p := range ps {
		if p.IsNumeric() {
			m[p.Name] = p.Value
		} else {
			m[p.Name] = p.Text
		}
	}
	return m
}
