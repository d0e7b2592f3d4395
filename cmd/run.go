package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/darwinprep/internal/pipeline"
	"github.com/KaramelBytes/darwinprep/internal/run"
	"github.com/KaramelBytes/darwinprep/internal/validate"
)

var (
	runOutputDir      string
	runDropDuplicates bool
	runOutliers       bool
	runSQLite         bool
	runNpy            bool
	runNoManifest     bool
)

var runPipelineCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Clean, validate, reshape and reduce in one pass and record the run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ro, err := readOptions()
		if err != nil {
			return err
		}
		opt, err := pipelineOptions()
		if err != nil {
			return err
		}
		opt.DropDuplicates = runDropDuplicates
		if runOutliers {
			opt.IQRFactor = cfg.IQRFactor
		}
		outs := pipeline.Outputs{
			Dir:    runOutputDir,
			SQLite: runSQLite,
			Npy:    runNpy,
			Config: cfg.Snapshot(),
		}
		if outs.Dir == "" {
			outs.Dir = cfg.OutputDir
		}
		if !runNoManifest {
			outs.RunsDir = cfg.RunsDir
		}

		out := cmd.OutOrStdout()
		res, err := pipeline.Run(cmd.Context(), args[0], ro, opt, outs, logger)
		if res != nil && res.Validation != nil && errors.Is(err, validate.ErrCheckFailed) {
			fmt.Fprint(out, res.Validation.Text())
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Cleaned %d rows (%d duplicates, %d outliers removed)\n",
			res.Clean.Inspection.Rows-res.Clean.Duplicates-res.Clean.Outliers, res.Clean.Duplicates, res.Clean.Outliers)
		fmt.Fprintf(out, "✓ Validation passed (%d trials per subject)\n", res.Validation.TrialsPerSubject)
		fmt.Fprintf(out, "✓ Reduced to %d features\n", len(res.Reduce.Columns))
		for _, a := range res.Artifacts {
			fmt.Fprintf(out, "  %-13s %s\n", a.Kind, a.Path)
		}
		if res.Manifest != nil {
			fmt.Fprintf(out, "✓ Run %s recorded in %s\n", res.Manifest.ID, res.Manifest.RootDir())
		}
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := run.List(cfg.RunsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(all) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		for _, m := range all {
			fmt.Fprintf(out, "%s  %s  %s  %d outputs\n", m.ID, m.CreatedAt.Local().Format(time.RFC3339), m.Input, len(m.Outputs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runPipelineCmd)
	rootCmd.AddCommand(runsCmd)
	runPipelineCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for outputs (default from config output_dir)")
	runPipelineCmd.Flags().BoolVar(&runDropDuplicates, "drop-duplicates", false, "drop rows with a repeated ID, keeping the first")
	runPipelineCmd.Flags().BoolVar(&runOutliers, "remove-outliers", false, "drop rows outside the IQR fences (config iqr_factor)")
	runPipelineCmd.Flags().BoolVar(&runSQLite, "sqlite", false, "also store long and subject tables in DARWIN.db")
	runPipelineCmd.Flags().BoolVar(&runNpy, "npy", false, "also write the feature matrix as .npy")
	runPipelineCmd.Flags().BoolVar(&runNoManifest, "no-manifest", false, "do not record the run under runs_dir")
}
