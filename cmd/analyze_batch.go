package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abOutDir   string
	abFormat   string
	abWorkers  int
	abFailFast bool
	abQuiet    bool
	abSource   sourceFlags
	abLocale   localeFlags
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple datasets concurrently, writing one report per input",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := utils.ExpandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := abLocale.options()
		if err != nil {
			return err
		}
		ext := map[string]string{"": ".analysis.json", "json": ".analysis.json", "yaml": ".analysis.yaml", "markdown": ".summary.md"}[abFormat]
		if ext == "" {
			return fmt.Errorf("unsupported --format: %s (use json|yaml|markdown)", abFormat)
		}
		if err := os.MkdirAll(abOutDir, 0o755); err != nil {
			return err
		}

		// Output names are fixed up front so same-named inputs from different
		// directories get deterministic __N suffixes in sorted input order.
		outputs := make([]string, len(files))
		reserved := map[string]struct{}{}
		for i, f := range files {
			base := filepath.Base(f)
			base = strings.TrimSuffix(base, filepath.Ext(base))
			if base == "" || base == "." || base == "/" {
				base = "dataset"
			}
			outputs[i] = utils.UniquePath(abOutDir, base, ext, reserved)
			reserved[outputs[i]] = struct{}{}
		}

		workers := abWorkers
		if workers <= 0 && cfg != nil {
			workers = cfg.Workers
		}
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(workers)

		var (
			mu     sync.Mutex
			done   int
			failed []string
		)
		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			g.Go(func() error {
				err := analyzeOne(ctx, path, outputs[i], opt)
				mu.Lock()
				defer mu.Unlock()
				done++
				if err != nil {
					failed = append(failed, path)
					log().WithError(err).WithField("file", path).Error("analysis failed")
					if !abQuiet {
						fmt.Fprintf(out, "[%d/%d] ✗ %s: %v\n", done, total, filepath.Base(path), err)
					}
					if abFailFast {
						return err
					}
					return nil
				}
				if !abQuiet {
					fmt.Fprintf(out, "[%d/%d] ✓ %s -> %s\n", done, total, filepath.Base(path), filepath.Base(outputs[i]))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d inputs failed: %s", len(failed), total, strings.Join(failed, ", "))
		}
		return nil
	},
}

func analyzeOne(ctx context.Context, path, outPath string, opt analysis.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opt.Logger = log().WithFields(logrus.Fields{"file": path})
	src, t, err := abSource.read(ctx, path)
	if err != nil {
		return err
	}
	a := analysis.Analyze(t, opt)
	b, err := renderAnalysis(a, abFormat, src.Name, 5)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(outPath, b)
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "analysis", "directory for per-input reports")
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "json", "report format: json|yaml|markdown")
	analyzeBatchCmd.Flags().IntVar(&abWorkers, "workers", 0, "concurrent inputs (0 = config workers, then GOMAXPROCS)")
	analyzeBatchCmd.Flags().BoolVar(&abFailFast, "fail-fast", false, "stop scheduling inputs after the first failure")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	abSource.register(analyzeBatchCmd)
	abLocale.register(analyzeBatchCmd)
}
