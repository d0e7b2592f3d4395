package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/darwinprep/internal/pipeline"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

var (
	clnOutput         string
	clnOutputDir      string
	clnLong           bool
	clnDropDuplicates bool
	clnOutliers       bool
	clnIQRFactor      float64
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Inspect the raw wide file, recode the class label and write a cleaned copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := readInput(args[0])
		if err != nil {
			return err
		}
		opt, err := pipelineOptions()
		if err != nil {
			return err
		}
		opt.DropDuplicates = clnDropDuplicates
		if clnOutliers {
			opt.IQRFactor = cfg.IQRFactor
			if cmd.Flags().Changed("iqr-factor") {
				opt.IQRFactor = clnIQRFactor
			}
			if opt.IQRFactor <= 0 {
				return fmt.Errorf("--iqr-factor must be positive")
			}
		}
		res, err := pipeline.Clean(t, opt, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, res.Inspection.Summary())
		if res.Recode != nil {
			fmt.Fprintf(out, "\n✓ Class variable recoded - %s\n", formatLabels(opt.Labels()))
			for _, code := range sortedCodes(res.Recode.Counts) {
				fmt.Fprintf(out, "  %d: %d\n", code, res.Recode.Counts[code])
			}
			if n := len(res.Recode.Unmapped); n > 0 {
				fmt.Fprintf(out, "⚠ %d unmapped class labels set to missing: %s\n", n, unmappedList(res.Recode.Unmapped))
			}
		}
		if clnDropDuplicates {
			fmt.Fprintf(out, "✓ Removed %d duplicate rows\n", res.Duplicates)
		}
		if clnOutliers {
			fmt.Fprintf(out, "✓ Removed %d outlier rows (IQR factor %g)\n", res.Outliers, opt.IQRFactor)
		}

		dest := outputPath(clnOutputDir, clnOutput)
		if err := table.Write(dest, t); err != nil {
			return err
		}
		rows, cols := t.Shape()
		fmt.Fprintf(out, "✓ Wrote cleaned data (%d, %d) to %s\n", rows, cols, dest)

		if clnLong {
			long, _, err := pipeline.Long(t, opt, logger)
			if err != nil {
				return err
			}
			ldest := outputPath(clnOutputDir, pipeline.LongFile)
			if err := table.Write(ldest, long); err != nil {
				return err
			}
			lr, lc := long.Shape()
			fmt.Fprintf(out, "✓ Long format data shape: (%d, %d) written to %s\n", lr, lc, ldest)
		}
		logger.Info("clean finished", zap.String("output", dest))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVarP(&clnOutput, "output", "o", pipeline.CleanedFile, "cleaned output file (.csv, .tsv or .xlsx)")
	cleanCmd.Flags().StringVar(&clnOutputDir, "output-dir", "", "directory for outputs (default from config output_dir)")
	cleanCmd.Flags().BoolVar(&clnLong, "long", false, "also write the long (ID, class, trial) table")
	cleanCmd.Flags().BoolVar(&clnDropDuplicates, "drop-duplicates", false, "drop rows with a repeated ID, keeping the first")
	cleanCmd.Flags().BoolVar(&clnOutliers, "remove-outliers", false, "drop rows outside the IQR fences of any numeric column")
	cleanCmd.Flags().Float64Var(&clnIQRFactor, "iqr-factor", 1.5, "IQR fence multiplier (overrides config iqr_factor)")
}

// pipelineOptions builds step options from the loaded configuration.
func pipelineOptions() (pipeline.Options, error) {
	if cfg == nil {
		return pipeline.Options{}, fmt.Errorf("configuration not loaded")
	}
	return pipeline.FromConfig(cfg)
}

func sortedCodes(m map[int]int) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func unmappedList(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for k, n := range m {
		parts = append(parts, fmt.Sprintf("%s (%d)", k, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
