package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/darwinprep/internal/config"
	"github.com/KaramelBytes/darwinprep/internal/reduce"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set darwinprep configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id_column: %s\n", cfg.IDColumn)
		fmt.Fprintf(out, "class_column: %s\n", cfg.ClassColumn)
		fmt.Fprintf(out, "class_labels: %s\n", formatLabels(cfg.ClassLabels))
		fmt.Fprintf(out, "metric_prefixes: %s\n", strings.Join(cfg.MetricPrefixes, ","))
		fmt.Fprintf(out, "variance_threshold: %g\n", cfg.VarianceThreshold)
		fmt.Fprintf(out, "correlation_threshold: %g\n", cfg.CorrelationThreshold)
		fmt.Fprintf(out, "round_decimals: %d\n", cfg.RoundDecimals)
		fmt.Fprintf(out, "iqr_factor: %g\n", cfg.IQRFactor)
		fmt.Fprintf(out, "pca_components: %d\n", cfg.PCAComponents)
		fmt.Fprintf(out, "kmeans_clusters: %d\n", cfg.KMeansClusters)
		fmt.Fprintf(out, "kmeans_iterations: %d\n", cfg.KMeansIterations)
		fmt.Fprintf(out, "bins: %d\n", cfg.Bins)
		fmt.Fprintf(out, "bin_strategy: %s\n", cfg.BinStrategy)
		fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "runs_dir: %s\n", cfg.RunsDir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: "Set a config value and save to disk. Keys: " + strings.Join(cfgpkg.Keys, ", ") +
		".\nclass_labels takes label=code pairs (Patient=0,Healthy=1); metric_prefixes a comma-separated list.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "id_column":
			if strings.TrimSpace(val) == "" {
				return fmt.Errorf("id_column cannot be empty")
			}
			cfg.IDColumn = val
		case "class_column":
			cfg.ClassColumn = val
		case "class_labels":
			labels, err := parseLabels(val)
			if err != nil {
				return err
			}
			cfg.ClassLabels = labels
		case "metric_prefixes":
			cfg.MetricPrefixes = splitList(val)
		case "variance_threshold", "correlation_threshold", "iqr_factor":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for %s: %v", key, val)
			}
			switch key {
			case "variance_threshold":
				cfg.VarianceThreshold = f
			case "correlation_threshold":
				if f > 1 {
					return fmt.Errorf("correlation_threshold must be in [0,1]: %v", val)
				}
				cfg.CorrelationThreshold = f
			default:
				cfg.IQRFactor = f
			}
		case "round_decimals", "pca_components", "kmeans_clusters", "kmeans_iterations", "bins":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			switch key {
			case "round_decimals":
				cfg.RoundDecimals = i
			case "pca_components":
				cfg.PCAComponents = i
			case "kmeans_clusters":
				cfg.KMeansClusters = i
			case "kmeans_iterations":
				cfg.KMeansIterations = i
			default:
				cfg.Bins = i
			}
		case "bin_strategy":
			s, err := reduce.ParseStrategy(strings.ToLower(val))
			if err != nil {
				return err
			}
			cfg.BinStrategy = string(s)
		case "output_dir":
			cfg.OutputDir = val
		case "runs_dir":
			cfg.RunsDir = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLabels reads "Patient=0,Healthy=1".
func parseLabels(s string) (map[string]int, error) {
	out := map[string]int{}
	for _, pair := range splitList(s) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid class label %q (use label=code)", pair)
		}
		code, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid code in %q: %w", pair, err)
		}
		out[strings.TrimSpace(k)] = code
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no class labels given")
	}
	return out, nil
}

func formatLabels(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, ",")
}
