package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/darwinprep/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check trial linkage, column naming, ID uniqueness and trial completeness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := readInput(args[0])
		if err != nil {
			return err
		}
		rep := validate.Run(t, validate.Options{
			ID:       cfg.IDColumn,
			Class:    cfg.ClassColumn,
			Prefixes: cfg.MetricPrefixes,
		})
		fmt.Fprint(cmd.OutOrStdout(), rep.Text())
		if err := rep.Err(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Validation passed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
