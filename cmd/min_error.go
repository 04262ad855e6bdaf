package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/analysis"
)

var minErrorPercentage bool

var minErrorCmd = &cobra.Command{
	Use:   "min-error <csv>",
	Short: "Find the series with the smallest error",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		return runMinError(newAnalyzer(ix), minErrorPercentage)
	},
}

func runMinError(a *analysis.Analyzer, percentage bool) error {
	m := metricFor(percentage)
	fmt.Printf("Searching for minimum %s...\n", m)
	res, err := a.FindMin(m)
	if err != nil {
		return err
	}
	fmt.Printf("\nBest parameters: %s\n", res.Params)
	printStats(res.Stats)
	return nil
}

func init() {
	rootCmd.AddCommand(minErrorCmd)
	minErrorCmd.Flags().BoolVarP(&minErrorPercentage, "percentage", "p", false, "use percentage error instead of absolute")
}
