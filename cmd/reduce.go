package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/darwinprep/internal/export"
	"github.com/KaramelBytes/darwinprep/internal/pipeline"
	"github.com/KaramelBytes/darwinprep/internal/reduce"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

var (
	redOutput      string
	redOutputDir   string
	redNpy         string
	redPCA         int
	redClusters    int
	redBins        int
	redBinStrategy string
)

var reduceCmd = &cobra.Command{
	Use:   "reduce <file>",
	Short: "Drop low-variance and correlated features, standardize and average per subject",
	Long: `Reduce reads a cleaned table and applies, in order: removal of columns with
variance below variance_threshold, removal of columns correlated above
correlation_threshold with an earlier column, rounding to round_decimals,
standardization to zero mean and unit variance, and one mean row per subject.
PCA, KMeans and binning run when their counts are positive. ID and class
columns are never reduced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := readInput(args[0])
		if err != nil {
			return err
		}
		opt, err := pipelineOptions()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("pca") {
			opt.PCAComponents = redPCA
		}
		if f.Changed("clusters") {
			opt.KMeansClusters = redClusters
		}
		if f.Changed("bins") {
			opt.Bins = redBins
		}
		if f.Changed("bin-strategy") {
			s, err := reduce.ParseStrategy(strings.ToLower(redBinStrategy))
			if err != nil {
				return err
			}
			opt.BinStrategy = s
		}

		res, err := pipeline.Reduce(t, opt, logger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Dropped %d low-variance columns (< %g)\n", len(res.LowVariance), opt.VarianceThreshold)
		fmt.Fprintf(out, "✓ Dropped %d highly correlated columns (> %g)\n", len(res.Correlated), opt.CorrelationThreshold)
		fmt.Fprintf(out, "✓ Standardized %d features\n", len(res.Features))
		if res.PCA != nil {
			var total float64
			for _, r := range res.PCA.ExplainedRatio {
				total += r
			}
			fmt.Fprintf(out, "✓ PCA: %d components explain %.1f%% of variance\n", len(res.PCA.ExplainedRatio), total*100)
		}
		if res.Clusters != nil {
			fmt.Fprintf(out, "✓ KMeans: %d clusters, sizes %v\n", res.Clusters.K, res.Clusters.Sizes)
		}

		dest := outputPath(redOutputDir, redOutput)
		if err := table.Write(dest, res.Table); err != nil {
			return err
		}
		rows, cols := res.Table.Shape()
		fmt.Fprintf(out, "✓ Preprocessing complete. Wrote (%d, %d) to %s\n", rows, cols, dest)

		if res.Discretized != nil {
			ddest := outputPath(redOutputDir, pipeline.DiscretizedFile)
			if err := table.Write(ddest, res.Discretized); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %d-bin %s discretization to %s\n", opt.Bins, opt.BinStrategy, ddest)
		}
		if redNpy != "" {
			if err := export.WriteNpy(redNpy, res.Table, res.Columns); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote feature matrix (%d, %d) to %s\n", rows, len(res.Columns), redNpy)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reduceCmd)
	reduceCmd.Flags().StringVarP(&redOutput, "output", "o", pipeline.StandardizedFile, "standardized output file (.csv, .tsv or .xlsx)")
	reduceCmd.Flags().StringVar(&redOutputDir, "output-dir", "", "directory for outputs (default from config output_dir)")
	reduceCmd.Flags().StringVar(&redNpy, "npy", "", "also write the feature matrix as a NumPy .npy file")
	reduceCmd.Flags().IntVar(&redPCA, "pca", 0, "number of principal components (overrides config, 0 = off)")
	reduceCmd.Flags().IntVar(&redClusters, "clusters", 0, "number of KMeans clusters (overrides config, 0 = off)")
	reduceCmd.Flags().IntVar(&redBins, "bins", 0, "number of bins for discretization (overrides config, 0 = off)")
	reduceCmd.Flags().StringVar(&redBinStrategy, "bin-strategy", "uniform", "binning strategy: uniform | quantile")
}
