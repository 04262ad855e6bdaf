package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/analysis"
)

var (
	paramSearchName      string
	paramSearchValue     float64
	paramSearchTolerance float64
	paramSearchVerbose   bool
)

var paramSearchCmd = &cobra.Command{
	Use:   "param-search <csv>",
	Short: "Find every series holding a parameter at a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if paramSearchName == "" {
			return fmt.Errorf("--name is required")
		}
		if !cmd.Flags().Changed("value") {
			return fmt.Errorf("--value is required")
		}
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		return runParamSearch(newAnalyzer(ix), paramSearchName, paramSearchValue, paramSearchTolerance, paramSearchVerbose)
	},
}

func runParamSearch(a *analysis.Analyzer, name string, value, tolerance float64, verbose bool) error {
	fmt.Printf("Searching for series with %s=%g...\n", name, value)
	results := a.SearchByParamValue(name, value, tolerance)
	if len(results) == 0 {
		fmt.Printf("No series found with %s=%g\n", name, value)
		return nil
	}
	fmt.Printf("\nFound %d series:\n", len(results))
	for i, r := range results {
		fmt.Printf("\n%d. %s\n", i+1, r.Params)
		if verbose {
			printStats(r.Stats)
		} else {
			fmt.Printf("   Min Error: %.6e, Min %% Error: %.6f%%\n", r.Stats.MinAbs, r.Stats.MinPct)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(paramSearchCmd)
	paramSearchCmd.Flags().StringVar(&paramSearchName, "name", "", "parameter name, e.g. Nm_In_W")
	paramSearchCmd.Flags().Float64Var(&paramSearchValue, "value", 0, "parameter value to match")
	paramSearchCmd.Flags().Float64VarP(&paramSearchTolerance, "tolerance", "t", 1e-10, "tolerance for the value match")
	paramSearchCmd.Flags().BoolVarP(&paramSearchVerbose, "verbose", "v", false, "show the full statistics block per series")
}
