package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/darwinprep/internal/export"
	"github.com/KaramelBytes/darwinprep/internal/reshape"
	"github.com/KaramelBytes/darwinprep/internal/table"
	"github.com/KaramelBytes/darwinprep/internal/utils"
)

var (
	rshOutput    string
	rshOutputDir string
	rshWide      bool
	rshSQLite    string
	rshTable     string
)

var reshapeCmd = &cobra.Command{
	Use:   "reshape <file>",
	Short: "Reshape trial-indexed wide columns into long (ID, class, trial) records",
	Long: `Reshape parses every column ending in a trial number (air_time1, air_time2, ...)
into a metric and a trial, melts each metric, and joins the melts on
(ID, class, trial). Trials missing from any metric are dropped and reported.
With --wide the input is treated as a long table and pivoted back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := readInput(args[0])
		if err != nil {
			return err
		}
		opt := reshape.Options{ID: cfg.IDColumn}
		if cfg.ClassColumn != "" && t.Has(cfg.ClassColumn) {
			opt.Class = cfg.ClassColumn
		}
		out := cmd.OutOrStdout()

		var result *table.Table
		suffix := "long"
		if rshWide {
			suffix = "wide"
			result, err = reshape.ToWide(t, opt)
			if err != nil {
				return err
			}
		} else {
			layout, err := reshape.Plan(t, opt)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Found %d metrics across %d common trials\n", len(layout.Metrics), len(layout.Trials))
			names := make([]string, 0, len(layout.Incomplete))
			for name := range layout.Incomplete {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "⚠ %s: trials %v dropped by the join\n", name, layout.Incomplete[name])
			}
			result, err = reshape.ToLong(t, opt)
			if err != nil {
				return err
			}
		}

		name := rshOutput
		if name == "" {
			name = utils.DerivedName(args[0], suffix)
		}
		dest := outputPath(rshOutputDir, name)
		if err := table.Write(dest, result); err != nil {
			return err
		}
		rows, cols := result.Shape()
		fmt.Fprintf(out, "✓ Wrote %s format data (%d, %d) to %s\n", suffix, rows, cols, dest)

		if rshSQLite != "" {
			if err := export.WriteSQLite(cmd.Context(), rshSQLite, rshTable, result); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Stored table %q in %s\n", rshTable, rshSQLite)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reshapeCmd)
	reshapeCmd.Flags().StringVarP(&rshOutput, "output", "o", "", "output file (default <input>_long.csv)")
	reshapeCmd.Flags().StringVar(&rshOutputDir, "output-dir", "", "directory for outputs (default from config output_dir)")
	reshapeCmd.Flags().BoolVar(&rshWide, "wide", false, "pivot a long table back to wide columns")
	reshapeCmd.Flags().StringVar(&rshSQLite, "sqlite", "", "also store the result in this SQLite database")
	reshapeCmd.Flags().StringVar(&rshTable, "table", "trials", "SQLite table name used with --sqlite")
}
