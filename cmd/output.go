package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

// renderAnalysis encodes a as json, yaml or markdown.
func renderAnalysis(a *analysis.Analysis, format, name string, sampleRows int) ([]byte, error) {
	switch format {
	case "", "json":
		return utils.PrettyJSON(a)
	case "yaml", "yml":
		return utils.JSONToYAML(a)
	case "markdown", "md":
		return []byte(a.Markdown(name, sampleRows)), nil
	}
	return nil, fmt.Errorf("unsupported --format: %s (use json|yaml|markdown)", format)
}

// emit writes data to path atomically, or to the command's stdout when path is empty.
func emit(cmd *cobra.Command, path string, data []byte, what string) error {
	if path == "" {
		out := cmd.OutOrStdout()
		if _, err := out.Write(data); err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			_, _ = fmt.Fprintln(out)
		}
		return nil
	}
	if err := utils.EnsureParentDir(path); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", what, path)
	return nil
}
