package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	plotpkg "github.com/KaramelBytes/sweepq/internal/plot"
)

var (
	plotIndex  int
	plotParams string
	plotFormat string
	plotOut    string
	plotTitle  string
)

var plotCmd = &cobra.Command{
	Use:   "plot <csv>",
	Short: "Render one series as an HTML or PNG chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		sel, err := flagSelector(cmd, plotIndex, plotParams)
		if err != nil {
			return err
		}
		s, _, err := ix.Resolve(sel)
		if err != nil {
			return err
		}

		format := plotFormat
		if format == "" && cfg != nil {
			format = cfg.PlotFormat
		}
		if format == "" {
			format = "html"
		}
		out := plotOut
		if out == "" {
			out = "sweep_plot." + format
		}
		opts := plotpkg.Options{Title: plotTitle}
		switch format {
		case "html":
			err = plotpkg.HTML(s, opts, out)
		case "png":
			err = plotpkg.PNG(s, opts, out)
		default:
			return fmt.Errorf("unknown format %q (use html or png)", format)
		}
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().IntVar(&plotIndex, "index", 0, "series index")
	plotCmd.Flags().StringVar(&plotParams, "params", "", `series parameters, e.g. "k1=v1,k2=v2"`)
	plotCmd.Flags().StringVar(&plotFormat, "format", "", "output format: html or png (default is the configured plot_format)")
	plotCmd.Flags().StringVar(&plotOut, "out", "", "output file (default sweep_plot.<format>)")
	plotCmd.Flags().StringVar(&plotTitle, "title", "", "chart title")
}
