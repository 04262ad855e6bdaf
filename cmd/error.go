package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/analysis"
	"github.com/KaramelBytes/sweepq/internal/sweep"
)

var (
	errorIndex  int
	errorParams string
)

var errorCmd = &cobra.Command{
	Use:   "error <csv>",
	Short: "Show error statistics for one series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		sel, err := flagSelector(cmd, errorIndex, errorParams)
		if err != nil {
			return err
		}
		return runError(newAnalyzer(ix), sel)
	},
}

func runError(a *analysis.Analyzer, sel sweep.Selector) error {
	res, err := a.SeriesStats(sel)
	if err != nil {
		return err
	}
	fmt.Printf("Parameters: %s\n", res.Params)
	printStats(res.Stats)
	return nil
}

func init() {
	rootCmd.AddCommand(errorCmd)
	errorCmd.Flags().IntVar(&errorIndex, "index", 0, "series index")
	errorCmd.Flags().StringVar(&errorParams, "params", "", `series parameters, e.g. "k1=v1,k2=v2"`)
}
