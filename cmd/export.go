package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/export"
	"github.com/KaramelBytes/tablelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	expTo     string
	expFormat string
	expRaw    bool
	expSource sourceFlags
	expLocale localeFlags
)

var exportCmd = &cobra.Command{
	Use:   "export <file|url>",
	Short: "Write the cleaned dataset as CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if expTo == "" {
			return fmt.Errorf("--to is required")
		}
		name := expFormat
		if name == "" {
			name = expTo
		}
		f, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		opt, err := expLocale.options()
		if err != nil {
			return err
		}
		_, t, err := expSource.read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !expRaw {
			t = analysis.Analyze(t, opt).CleanedData
		}
		b, err := export.Encode(t, f)
		if err != nil {
			return err
		}
		if err := utils.EnsureParentDir(expTo); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(expTo, b); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d rows to %s\n", t.Len(), expTo)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&expTo, "to", "", "destination path (.csv or .xlsx)")
	exportCmd.Flags().StringVar(&expFormat, "format", "", "csv|xlsx (default: from --to extension)")
	exportCmd.Flags().BoolVar(&expRaw, "raw", false, "export parsed rows without cleaning")
	expSource.register(exportCmd)
	expLocale.register(exportCmd)
}
