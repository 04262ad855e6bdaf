package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/analysis"
	"github.com/KaramelBytes/sweepq/internal/sweep"
)

var (
	compareA string
	compareB string
)

var compareCmd = &cobra.Command{
	Use:   "compare <csv>",
	Short: "Compare the error statistics of two series",
	Long: `Compare computes error statistics for two series side by side and prints
the difference. A selector is either a series index or a parameter string
such as "Nm_In_W=2.4e-07,Nm_Out_W=4.8e-07".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if compareA == "" || compareB == "" {
			return fmt.Errorf("both --a and --b are required")
		}
		aSel, err := parseSelector(compareA)
		if err != nil {
			return fmt.Errorf("selector a: %w", err)
		}
		bSel, err := parseSelector(compareB)
		if err != nil {
			return fmt.Errorf("selector b: %w", err)
		}
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		return runCompare(ix, newAnalyzer(ix), aSel, bSel)
	},
}

func runCompare(ix *sweep.Index, a *analysis.Analyzer, aSel, bSel sweep.Selector) error {
	_, pa, err := ix.Resolve(aSel)
	if err != nil {
		return fmt.Errorf("series a: %w", err)
	}
	_, pb, err := ix.Resolve(bSel)
	if err != nil {
		return fmt.Errorf("series b: %w", err)
	}
	comps := a.Compare([]sweep.Params{pa, pb})
	for i, c := range comps {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%d. %s\n", i+1, c.Params)
		if c.Err != nil {
			return c.Err
		}
		printStats(c.Stats)
	}
	sa, sb := comps[0].Stats, comps[1].Stats
	fmt.Println("\nDelta (2 - 1):")
	fmt.Printf("  Min Absolute Error: %+.6e\n", sb.MinAbs-sa.MinAbs)
	fmt.Printf("  Min Percentage Error: %+.6f%%\n", sb.MinPct-sa.MinPct)
	fmt.Printf("  Mean Absolute Error: %+.6e\n", sb.MeanAbs-sa.MeanAbs)
	fmt.Printf("  Mean Percentage Error: %+.6f%%\n", sb.MeanPct-sa.MeanPct)
	fmt.Printf("  Max Absolute Error: %+.6e\n", sb.MaxAbs-sa.MaxAbs)
	return nil
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&compareA, "a", "", "first series: index or parameter string")
	compareCmd.Flags().StringVar(&compareB, "b", "", "second series: index or parameter string")
}
