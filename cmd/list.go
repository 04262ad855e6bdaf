package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/sweep"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list <csv>",
	Short: "List every series with its index and parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		return runList(ix, listLimit)
	},
}

func runList(ix *sweep.Index, limit int) error {
	entries := ix.ListSeries(limit)
	if len(entries) == 0 {
		fmt.Println("No series available.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%d: %s\n", e.Index, e.Params)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "show at most this many series (0 = all)")
}
