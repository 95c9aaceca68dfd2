package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/KaramelBytes/tablelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	corColumns []string
	corWhere   []string
	corJSON    bool
	corSource  sourceFlags
	corLocale  localeFlags
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <file|url>",
	Short: "Pearson correlation matrix over the cleaned numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := corLocale.options()
		if err != nil {
			return err
		}
		_, raw, err := corSource.read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a := analysis.Analyze(raw, opt)
		t := a.CleanedData
		for _, w := range corWhere {
			col, val, ok := strings.Cut(w, "=")
			if !ok {
				return fmt.Errorf("invalid --where %q (use column=value)", w)
			}
			j := t.Index(strings.TrimSpace(col))
			if j < 0 {
				return fmt.Errorf("unknown column in --where: %s", col)
			}
			t = t.Filter(func(r dataset.Row) bool { return r.Get(j).Text() == val })
		}
		cols := corColumns
		if len(cols) == 0 {
			cols = a.NumericColumns()
		}
		if len(cols) == 0 {
			return fmt.Errorf("no numeric columns to correlate")
		}
		res := analysis.CorrelationMatrix(t, cols)
		if corJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			return emit(cmd, "", b, "correlation")
		}
		fmt.Fprint(cmd.OutOrStdout(), matrixTable(res))
		return nil
	},
}

func matrixTable(res analysis.CorrelationResult) string {
	var b strings.Builder
	b.WriteString("| |")
	for _, c := range res.Columns {
		b.WriteString(" " + c + " |")
	}
	b.WriteString("\n|---|")
	for range res.Columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, c := range res.Columns {
		b.WriteString("| " + c + " |")
		for _, r := range res.Matrix[i] {
			fmt.Fprintf(&b, " %.3f |", r)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	correlateCmd.Flags().StringSliceVar(&corColumns, "columns", nil, "columns to correlate (default: inferred numeric columns)")
	correlateCmd.Flags().StringArrayVar(&corWhere, "where", nil, "keep rows where column=value (repeatable)")
	correlateCmd.Flags().BoolVar(&corJSON, "json", false, "print the matrix as JSON")
	corSource.register(correlateCmd)
	corLocale.register(correlateCmd)
}
