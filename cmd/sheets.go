package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tablelens-cli/internal/ingest"
	"github.com/spf13/cobra"
)

var shSource sourceFlags

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file|url>",
	Short: "List the sheets of a workbook (single-table formats report one)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _, err := shSource.open(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		names, err := ingest.ListSheets(src)
		if err != nil {
			return err
		}
		for i, n := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	shSource.register(sheetsCmd)
}
