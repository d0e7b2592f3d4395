package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".darwinprep"

// Global configuration structure.
type Global struct {
	IDColumn       string         `mapstructure:"id_column" yaml:"id_column"`
	ClassColumn    string         `mapstructure:"class_column" yaml:"class_column"`
	ClassLabels    map[string]int `mapstructure:"class_labels" yaml:"class_labels"`
	MetricPrefixes []string       `mapstructure:"metric_prefixes" yaml:"metric_prefixes"`

	// Reduction
	VarianceThreshold    float64 `mapstructure:"variance_threshold" yaml:"variance_threshold"`
	CorrelationThreshold float64 `mapstructure:"correlation_threshold" yaml:"correlation_threshold"`
	RoundDecimals        int     `mapstructure:"round_decimals" yaml:"round_decimals"`
	IQRFactor            float64 `mapstructure:"iqr_factor" yaml:"iqr_factor"`
	PCAComponents        int     `mapstructure:"pca_components" yaml:"pca_components"`
	KMeansClusters       int     `mapstructure:"kmeans_clusters" yaml:"kmeans_clusters"`
	KMeansIterations     int     `mapstructure:"kmeans_iterations" yaml:"kmeans_iterations"`
	Bins                 int     `mapstructure:"bins" yaml:"bins"`
	BinStrategy          string  `mapstructure:"bin_strategy" yaml:"bin_strategy"`

	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	RunsDir   string `mapstructure:"runs_dir" yaml:"runs_dir"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"id_column", "class_column", "class_labels", "metric_prefixes",
	"variance_threshold", "correlation_threshold", "round_decimals", "iqr_factor",
	"pca_components", "kmeans_clusters", "kmeans_iterations", "bins", "bin_strategy",
	"output_dir", "runs_dir",
}

// Dir returns ~/.darwinprep.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Defaults returns the built-in configuration. RunsDir is left empty when
// the home directory cannot be resolved.
func Defaults() *Global {
	g := &Global{
		IDColumn:    "ID",
		ClassColumn: "class",
		ClassLabels: map[string]int{"Patient": 0, "P": 0, "Healthy": 1, "H": 1},
		MetricPrefixes: []string{
			"air_time", "pressure", "disp_index", "gmrt",
			"max_x_extension", "max_y_extension",
			"mean_acc", "mean_jerk", "mean_speed",
			"num_of_pendown", "paper_time", "total_time",
		},
		VarianceThreshold:    1e-3,
		CorrelationThreshold: 0.95,
		RoundDecimals:        1,
		IQRFactor:            1.5,
		KMeansIterations:     300,
		BinStrategy:          "uniform",
		OutputDir:            ".",
	}
	if dir, err := Dir(); err == nil {
		g.RunsDir = filepath.Join(dir, "runs")
	}
	return g
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.darwinprep/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DARWINPREP")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("id_column", d.IDColumn)
	v.SetDefault("class_column", d.ClassColumn)
	v.SetDefault("class_labels", d.ClassLabels)
	v.SetDefault("metric_prefixes", d.MetricPrefixes)
	v.SetDefault("variance_threshold", d.VarianceThreshold)
	v.SetDefault("correlation_threshold", d.CorrelationThreshold)
	v.SetDefault("round_decimals", d.RoundDecimals)
	v.SetDefault("iqr_factor", d.IQRFactor)
	v.SetDefault("pca_components", d.PCAComponents)
	v.SetDefault("kmeans_clusters", d.KMeansClusters)
	v.SetDefault("kmeans_iterations", d.KMeansIterations)
	v.SetDefault("bins", d.Bins)
	v.SetDefault("bin_strategy", d.BinStrategy)
	v.SetDefault("output_dir", d.OutputDir)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve runs_dir default: ~/.darwinprep/runs
	if c.RunsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}

// Snapshot returns the settings that shape pipeline output, for run manifests.
func (c *Global) Snapshot() map[string]any {
	return map[string]any{
		"id_column":             c.IDColumn,
		"class_column":          c.ClassColumn,
		"class_labels":          c.ClassLabels,
		"variance_threshold":    c.VarianceThreshold,
		"correlation_threshold": c.CorrelationThreshold,
		"round_decimals":        c.RoundDecimals,
		"iqr_factor":            c.IQRFactor,
		"pca_components":        c.PCAComponents,
		"kmeans_clusters":       c.KMeansClusters,
		"kmeans_iterations":     c.KMeansIterations,
		"bins":                  c.Bins,
		"bin_strategy":          c.BinStrategy,
	}
}
