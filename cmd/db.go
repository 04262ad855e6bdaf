package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/sweep"
	"github.com/KaramelBytes/sweepq/internal/utils"
)

var dbPath string

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the simulation database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts and file size",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		info, err := st.Status()
		if err != nil {
			return err
		}
		fmt.Printf("path: %s\n", info.Path)
		fmt.Printf("size: %d bytes\n", info.SizeBytes)
		fmt.Printf("simulations: %d\n", info.Simulations)
		fmt.Printf("series: %d\n", info.Series)
		fmt.Printf("points: %d\n", info.Points)
		fmt.Printf("metrics: %d\n", info.Metrics)
		fmt.Printf("categories: %d\n", info.Categories)
		return nil
	},
}

var (
	dbSearchName       string
	dbSearchCircuit    string
	dbSearchCategories []string
	dbSearchLimit      int
)

var dbSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search simulations by name, circuit, or category",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		rows, err := st.SearchSimulations(dbSearchName, dbSearchCircuit, dbSearchCategories, dbSearchLimit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No simulations found.")
			return nil
		}
		for _, r := range rows {
			line := fmt.Sprintf("%d. %s (%s)", r.ID, r.Name, r.CircuitName)
			if len(r.Categories) > 0 {
				line += " [" + strings.Join(r.Categories, ", ") + "]"
			}
			fmt.Println(line)
			if r.Description != "" {
				fmt.Printf("   %s\n", r.Description)
			}
		}
		return nil
	},
}

var dbShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show everything recorded for one simulation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid simulation id %q", args[0])
		}
		st, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		d, err := st.SimulationDetails(id)
		if err != nil {
			return err
		}
		b, err := utils.PrettyJSON(d)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

var (
	dbSeriesSignal string
	dbSeriesWhere  string
)

var dbSeriesCmd = &cobra.Command{
	Use:   "series <id>",
	Short: "List the stored series of a simulation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid simulation id %q", args[0])
		}
		var filters map[string]float64
		if dbSeriesWhere != "" {
			ps, err := sweep.ParseParams(dbSeriesWhere)
			if err != nil {
				return err
			}
			filters = make(map[string]float64, len(ps))
			for _, p := range ps {
				if !p.IsNumeric() {
					return fmt.Errorf("filter %s=%s is not numeric", p.Name, p.Text)
				}
				filters[p.Name] = p.Value
			}
		}
		st, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		recs, err := st.DataSeries(id, dbSeriesSignal, filters)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No series found.")
			return nil
		}
		for _, r := range recs {
			line := fmt.Sprintf("- series %d: %s (%d points)", r.SeriesID, r.SignalPath, len(r.Points))
			if ps := formatSweepParams(r.SweepParams); ps != "" {
				line += " [" + ps + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var (
	dbMetricsCircuit string
	dbMetricsMin     float64
	dbMetricsMax     float64
	dbMetricsLimit   int
)

var dbMetricsCmd = &cobra.Command{
	Use:   "metrics <name>",
	Short: "Aggregate a stored metric, or list rows within bounds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		metric := args[0]
		f := cmd.Flags()
		if f.Changed("min") || f.Changed("max") {
			var lo, hi *float64
			if f.Changed("min") {
				lo = &dbMetricsMin
			}
			if f.Changed("max") {
				hi = &dbMetricsMax
			}
			hits, err := st.FilterByMetric(metric, lo, hi, dbMetricsLimit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("No metrics found.")
				return nil
			}
			for i, h := range hits {
				fmt.Printf("%d. %s / %s: %g %s\n", i+1, h.SimulationName, h.SignalPath, h.MetricValue, h.MetricUnit)
				if ps := formatSweepParams(h.SweepParams); ps != "" {
					fmt.Printf("   %s\n", ps)
				}
			}
			return nil
		}
		stats, err := st.MetricStatistics(metric, dbMetricsCircuit)
		if err != nil {
			return err
		}
		if stats.Count == 0 {
			fmt.Println("No metrics found.")
			return nil
		}
		fmt.Printf("metric: %s\n", stats.MetricName)
		fmt.Printf("count: %d\n", stats.Count)
		fmt.Printf("min: %g\n", stats.Min)
		fmt.Printf("max: %g\n", stats.Max)
		fmt.Printf("avg: %g\n", stats.Avg)
		return nil
	},
}

var dbCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories with simulation counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		cats, err := st.ListCategories()
		if err != nil {
			return err
		}
		if len(cats) == 0 {
			fmt.Println("No categories.")
			return nil
		}
		for _, c := range cats {
			line := fmt.Sprintf("- %s (%d simulations)", c.Name, c.SimulationCount)
			if c.Description != "" {
				line += ": " + c.Description
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is the configured db_path)")
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbSearchCmd)
	dbCmd.AddCommand(dbShowCmd)
	dbCmd.AddCommand(dbSeriesCmd)
	dbCmd.AddCommand(dbMetricsCmd)
	dbCmd.AddCommand(dbCategoriesCmd)

	dbSearchCmd.Flags().StringVar(&dbSearchName, "name", "", "partial simulation name")
	dbSearchCmd.Flags().StringVar(&dbSearchCircuit, "circuit", "", "partial circuit name")
	dbSearchCmd.Flags().StringSliceVar(&dbSearchCategories, "categories", nil, "match simulations carrying any of these categories")
	dbSearchCmd.Flags().IntVar(&dbSearchLimit, "limit", 0, "show at most this many simulations (0 = all)")

	dbSeriesCmd.Flags().StringVar(&dbSeriesSignal, "signal", "", "exact signal path filter")
	dbSeriesCmd.Flags().StringVar(&dbSeriesWhere, "where", "", `sweep value filter, e.g. "W=1e-6"`)

	dbMetricsCmd.Flags().StringVar(&dbMetricsCircuit, "circuit", "", "partial circuit name for the aggregate")
	dbMetricsCmd.Flags().Float64Var(&dbMetricsMin, "min", 0, "lower bound for listing rows")
	dbMetricsCmd.Flags().Float64Var(&dbMetricsMax, "max", 0, "upper bound for listing rows")
	dbMetricsCmd.Flags().IntVar(&dbMetricsLimit, "limit", 0, "show at most this many rows (0 = all)")
}
