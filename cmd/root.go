package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/darwinprep/internal/config"
	"github.com/KaramelBytes/darwinprep/internal/logging"
	"github.com/KaramelBytes/darwinprep/internal/table"
	"github.com/KaramelBytes/darwinprep/internal/utils"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Input flags shared by every command that reads a table
	flagDelimiter  string
	flagSheetName  string
	flagSheetIndex int
	flagIDColumn   string
	flagClassCol   string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Logger built for each invocation
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "darwinprep",
	Short: "darwinprep: clean, validate, reshape and reduce the DARWIN handwriting dataset",
	Long: `darwinprep prepares the DARWIN handwriting dataset for analysis. It inspects and
cleans the raw wide file, checks its structure, reshapes trial-indexed columns
into long (ID, class, trial) records, and reduces the features to one
standardized row per subject.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before every rootCmd.Execute.
	cobra.OnInitialize(loadConfig)

	// Persistent global flags available to all subcommands
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.darwinprep/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default from extension)")
	pf.StringVar(&flagSheetName, "sheet-name", "", "XLSX: sheet name to read")
	pf.IntVar(&flagSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	pf.StringVar(&flagIDColumn, "id-column", "", "subject ID column (overrides config)")
	pf.StringVar(&flagClassCol, "class-column", "", "class label column (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("id-column") && flagIDColumn != "" {
		cfg.IDColumn = flagIDColumn
	}
	if f.Changed("class-column") {
		cfg.ClassColumn = flagClassCol
	}
}

// readOptions converts the shared input flags.
func readOptions() (table.ReadOptions, error) {
	opt := table.ReadOptions{SheetName: flagSheetName, SheetIndex: flagSheetIndex}
	switch flagDelimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", flagDelimiter)
	}
	return opt, nil
}

// readInput loads the table named on the command line.
func readInput(path string) (*table.Table, error) {
	ro, err := readOptions()
	if err != nil {
		return nil, err
	}
	t, err := table.Read(path, ro)
	if err != nil {
		return nil, err
	}
	rows, cols := t.Shape()
	logger.Debug("input loaded", zap.String("path", path), zap.Int("rows", rows), zap.Int("cols", cols))
	return t, nil
}

// outputPath resolves name against --output-dir or the configured output_dir.
func outputPath(dir, name string) string {
	if dir == "" && cfg != nil {
		dir = cfg.OutputDir
	}
	return utils.OutputPath(dir, name)
}
