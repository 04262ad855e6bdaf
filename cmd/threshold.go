package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/analysis"
)

var (
	thresholdValue      float64
	thresholdPercentage bool
	thresholdOperator   string
	thresholdLimit      int
	thresholdVerbose    bool
)

var thresholdCmd = &cobra.Command{
	Use:   "threshold <csv>",
	Short: "Find every series within an error threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("threshold") {
			return fmt.Errorf("--threshold is required")
		}
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		return runThreshold(newAnalyzer(ix), thresholdValue, thresholdPercentage, thresholdOperator, thresholdLimit, thresholdVerbose)
	},
}

func runThreshold(a *analysis.Analyzer, threshold float64, percentage bool, operator string, limit int, verbose bool) error {
	m := metricFor(percentage)
	op, err := analysis.ParseOp(operator)
	if err != nil {
		return err
	}
	fmt.Printf("Searching for series where %s %s %g...\n", m, op, threshold)
	results := a.FilterByThreshold(m, op, threshold, limit)
	if len(results) == 0 {
		fmt.Println("No series found matching criteria.")
		return nil
	}
	fmt.Printf("\nFound %d series:\n", len(results))
	for i, r := range results {
		fmt.Printf("\n%d. %s\n", i+1, r.Params)
		switch {
		case verbose:
			printStats(r.Stats)
		case percentage:
			fmt.Printf("   %s: %.6f%%\n", m, r.Stats.Value(m))
		default:
			fmt.Printf("   %s: %.6e\n", m, r.Stats.Value(m))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(thresholdCmd)
	thresholdCmd.Flags().Float64Var(&thresholdValue, "threshold", 0, "error threshold value")
	thresholdCmd.Flags().BoolVarP(&thresholdPercentage, "percentage", "p", false, "use percentage error instead of absolute")
	thresholdCmd.Flags().StringVarP(&thresholdOperator, "operator", "o", "<=", "comparison operator: <=, <, >=, >, ==")
	thresholdCmd.Flags().IntVar(&thresholdLimit, "limit", 0, "show at most this many series (0 = all)")
	thresholdCmd.Flags().BoolVarP(&thresholdVerbose, "verbose", "v", false, "show the full statistics block per series")
}
