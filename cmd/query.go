package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/sweep"
	"github.com/KaramelBytes/sweepq/internal/utils"
)

var (
	queryIndex  int
	queryParams string
	queryX      float64
)

var queryCmd = &cobra.Command{
	Use:   "query <csv>",
	Short: "Find the sample whose X is nearest to a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("x") {
			return fmt.Errorf("--x is required")
		}
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		sel, err := flagSelector(cmd, queryIndex, queryParams)
		if err != nil {
			return err
		}
		return runQuery(ix, sel, queryX)
	},
}

type queryOutput struct {
	XQuery float64        `json:"x_query"`
	XFound float64        `json:"x_found"`
	YFound float64        `json:"y_found"`
	Row    int            `json:"row"`
	Params map[string]any `json:"params"`
}

func runQuery(ix *sweep.Index, sel sweep.Selector, x float64) error {
	res, err := ix.QueryClosest(sel, x)
	if err != nil {
		return err
	}
	b, err := utils.PrettyJSON(queryOutput{
		XQuery: x,
		XFound: res.XFound,
		YFound: res.YFound,
		Row:    res.Row,
		Params: paramsJSON(res.Params),
	})
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVar(&queryIndex, "index", 0, "series index")
	queryCmd.Flags().StringVar(&queryParams, "params", "", `series parameters, e.g. "k1=v1,k2=v2"`)
	queryCmd.Flags().Float64Var(&queryX, "x", 0, "X value to query")
}
