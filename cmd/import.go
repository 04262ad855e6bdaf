package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/store"
)

var (
	importName        string
	importCircuit     string
	importDescription string
	importCategories  []string
	importParameters  []string
	importVDD         float64
	importVT          float64
	importTemperature float64
	importRatio       float64
	importDBPath      string
	importNoMetrics   bool
)

var importCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Parse a sweep export and archive it in the simulation database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importName == "" {
			return fmt.Errorf("--name is required")
		}
		if importCircuit == "" {
			return fmt.Errorf("--circuit is required")
		}
		fmt.Printf("Importing simulation from %s...\n", args[0])
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		st, err := openStore(importDBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		meta := store.ImportMeta{
			Name:        importName,
			CircuitName: importCircuit,
			Description: importDescription,
			Categories:  importCategories,
			Ratio:       importRatio,
			SkipMetrics: importNoMetrics,
		}
		for _, p := range importParameters {
			fp, err := parseFixedParam(p)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
				continue
			}
			meta.Fixed = append(meta.Fixed, fp)
		}
		f := cmd.Flags()
		if f.Changed("vdd") {
			meta.VDD = &importVDD
		}
		if f.Changed("vt") {
			meta.VT = &importVT
		}
		if f.Changed("temperature") {
			meta.Temperature = &importTemperature
		}

		res, err := st.ImportSimulation(ix, meta)
		if err != nil {
			return err
		}
		if res.SkippedParams > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %d text-valued sweep parameters were not archived\n", res.SkippedParams)
		}
		fmt.Printf("✓ Successfully imported simulation %q (ID: %d, run %s)\n", importName, res.SimulationID, res.UID)
		fmt.Printf("  %d series, %d points, %d metrics\n", res.Series, res.Points, res.Metrics)
		return nil
	},
}

// parseFixedParam reads one name:value:unit argument.
func parseFixedParam(s string) (store.FixedParam, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return store.FixedParam{}, fmt.Errorf("invalid parameter format %q, expected name:value:unit", s)
	}
	v, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return store.FixedParam{}, fmt.Errorf("invalid parameter value in %q: %v", s, err)
	}
	return store.FixedParam{Name: parts[0], Value: v, Unit: parts[2]}, nil
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importName, "name", "", "simulation name")
	importCmd.Flags().StringVar(&importCircuit, "circuit", "", "circuit name")
	importCmd.Flags().StringVar(&importDescription, "description", "", "simulation description")
	importCmd.Flags().StringSliceVar(&importCategories, "categories", nil, "categories to assign (comma separated)")
	importCmd.Flags().StringArrayVar(&importParameters, "parameters", nil, "fixed parameters as name:value:unit, e.g. Iref:100e-6:A")
	importCmd.Flags().Float64Var(&importVDD, "vdd", 0, "supply voltage (V)")
	importCmd.Flags().Float64Var(&importVT, "vt", 0, "threshold voltage (V)")
	importCmd.Flags().Float64Var(&importTemperature, "temperature", 0, "temperature (C)")
	importCmd.Flags().Float64Var(&importRatio, "ratio", 0, "expected Y/X ratio for the error metric (default 1)")
	importCmd.Flags().StringVar(&importDBPath, "db", "", "database file (default is the configured db_path)")
	importCmd.Flags().BoolVar(&importNoMetrics, "no-metrics", false, "skip metric calculation")
}
