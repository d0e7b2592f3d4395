package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/darwinprep/internal/analysis"
	"github.com/KaramelBytes/darwinprep/internal/utils"
)

var (
	proOutputPath string
	proSampleRows int
	proMaxRows    int
	proGroupBy    []string
	proCorr       bool
	proOutliers   bool
	proOutlierThr float64
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Summarize a dataset as Markdown (schema, stats, outliers, correlations)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		t, err := readInput(path)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if proSampleRows > 0 {
			opt.SampleRows = proSampleRows
		}
		if cmd.Flags().Changed("max-rows") {
			opt.MaxRows = proMaxRows
		}
		opt.GroupBy = proGroupBy
		opt.Correlations = proCorr
		if cmd.Flags().Changed("outliers") {
			opt.Outliers = proOutliers
		}
		if proOutlierThr > 0 {
			opt.OutlierThreshold = proOutlierThr
		}
		for _, g := range opt.GroupBy {
			if !t.Has(g) {
				return fmt.Errorf("--group-by: column %q not found", g)
			}
		}
		md := analysis.Profile(t, filepath.Base(path), opt).Markdown()

		if proOutputPath != "" {
			if err := utils.SafeWriteFile(proOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", proOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&proOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().IntVar(&proSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().IntVar(&proMaxRows, "max-rows", 100000, "maximum rows to profile (0 = unlimited)")
	profileCmd.Flags().StringSliceVar(&proGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	profileCmd.Flags().BoolVar(&proCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	profileCmd.Flags().BoolVar(&proOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&proOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}
