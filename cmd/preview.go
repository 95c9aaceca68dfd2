package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	pvRows   int
	pvSource sourceFlags
)

var previewCmd = &cobra.Command{
	Use:   "preview <file|url>",
	Short: "Show the first rows of a dataset as parsed, before cleaning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pvRows < 1 {
			return fmt.Errorf("--rows must be positive")
		}
		src, t, err := pvSource.read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d rows x %d columns\n\n", src.Name, t.Len(), len(t.Columns))
		fmt.Fprint(out, analysis.MarkdownTable(t.Columns, t.Rows, pvRows))
		if t.ParseErrors > 0 {
			fmt.Fprintf(out, "\n⚠ %d malformed rows skipped\n", t.ParseErrors)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntVar(&pvRows, "rows", 10, "number of rows to show")
	pvSource.register(previewCmd)
}
