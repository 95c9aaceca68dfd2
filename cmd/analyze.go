package cmd

import (
	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaFormat     string
	anaSampleRows int
	anaSource     sourceFlags
	anaLocale     localeFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Profile a CSV/TSV/XLSX/JSON dataset and report quality",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := anaLocale.options()
		if err != nil {
			return err
		}
		src, t, err := anaSource.read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a := analysis.Analyze(t, opt)
		out, err := renderAnalysis(a, anaFormat, src.Name, anaSampleRows)
		if err != nil {
			return err
		}
		return emit(cmd, anaOutputPath, out, "analysis")
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis (stdout if omitted)")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "json", "output format: json|yaml|markdown")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "markdown: number of cleaned rows to include (0 disables)")
	anaSource.register(analyzeCmd)
	anaLocale.register(analyzeCmd)
}
