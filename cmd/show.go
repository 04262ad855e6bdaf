package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/sweep"
)

var (
	showIndex  int
	showParams string
	showSample int
)

var showCmd = &cobra.Command{
	Use:   "show <csv>",
	Short: "Show one series: parameters, length, and the first samples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		sel, err := flagSelector(cmd, showIndex, showParams)
		if err != nil {
			return err
		}
		return runShow(ix, sel, showSample)
	},
}

func runShow(ix *sweep.Index, sel sweep.Selector, sample int) error {
	s, p, err := ix.Resolve(sel)
	if err != nil {
		return err
	}
	i, _ := ix.IndexOf(p)
	fmt.Printf("index: %d\n", i)
	fmt.Printf("params: %s\n", p)
	fmt.Printf("length: %d\n", s.Len())
	if sample > 0 && s.Len() > 0 {
		n := sample
		if n > s.Len() {
			n = s.Len()
		}
		fmt.Println("head(x,y):")
		for j := 0; j < n; j++ {
			fmt.Printf("  %.6g\t%.6g\n", s.X[j], s.Y[j])
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVar(&showIndex, "index", 0, "series index")
	showCmd.Flags().StringVar(&showParams, "params", "", `series parameters, e.g. "k1=v1,k2=v2"`)
	showCmd.Flags().IntVar(&showSample, "sample", 10, "number of leading samples to print")
}
