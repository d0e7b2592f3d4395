// Package pipeline chains the cleaning, reshape and reduction steps the way
// the CLI runs them, logging each step boundary.
package pipeline

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/KaramelBytes/darwinprep/internal/clean"
	"github.com/KaramelBytes/darwinprep/internal/cluster"
	"github.com/KaramelBytes/darwinprep/internal/config"
	"github.com/KaramelBytes/darwinprep/internal/reduce"
	"github.com/KaramelBytes/darwinprep/internal/reshape"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

// Options controls every step. Zero values switch optional steps off.
type Options struct {
	ID             string
	Class          string
	ClassLabels    map[string]int
	MetricPrefixes []string

	DropDuplicates bool
	// IQRFactor > 0 enables outlier removal.
	IQRFactor float64

	VarianceThreshold    float64
	CorrelationThreshold float64
	RoundDecimals        int
	PCAComponents        int
	KMeansClusters       int
	KMeansIterations     int
	Bins                 int
	BinStrategy          reduce.Strategy
}

// FromConfig maps the global configuration onto pipeline options. Outlier
// removal and de-duplication stay off; commands enable them by flag.
func FromConfig(c *config.Global) (Options, error) {
	strategy, err := reduce.ParseStrategy(c.BinStrategy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ID:                   c.IDColumn,
		Class:                c.ClassColumn,
		ClassLabels:          c.ClassLabels,
		MetricPrefixes:       c.MetricPrefixes,
		VarianceThreshold:    c.VarianceThreshold,
		CorrelationThreshold: c.CorrelationThreshold,
		RoundDecimals:        c.RoundDecimals,
		PCAComponents:        c.PCAComponents,
		KMeansClusters:       c.KMeansClusters,
		KMeansIterations:     c.KMeansIterations,
		Bins:                 c.Bins,
		BinStrategy:          strategy,
	}, nil
}

func (o Options) reshapeOptions(t *table.Table) reshape.Options {
	ro := reshape.Options{ID: o.ID}
	if o.Class != "" && t.Has(o.Class) {
		ro.Class = o.Class
	}
	return ro
}

// Labels returns the class label mapping, falling back to the DARWIN defaults.
func (o Options) Labels() map[string]int {
	if len(o.ClassLabels) == 0 {
		return clean.DefaultClassLabels()
	}
	return o.ClassLabels
}

// CleanResult is the outcome of Clean. Wide is the input table, modified in place.
type CleanResult struct {
	Inspection *clean.Inspection
	Recode     *clean.RecodeResult
	Duplicates int
	Outliers   int
	Fences     []clean.Fence
	Wide       *table.Table
}

// Clean inspects t, optionally drops duplicate IDs, then recodes the class
// column and optionally removes IQR outliers.
func Clean(t *table.Table, opt Options, log *zap.Logger) (*CleanResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	in, err := clean.Inspect(t, opt.ID, opt.Class)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	log.Info("inspected",
		zap.Int("rows", in.Rows), zap.Int("cols", in.Cols),
		zap.Int("missing", in.TotalMissing), zap.Int("duplicate_ids", len(in.DuplicateIDs)),
		zap.Int("negative_columns", len(in.Negative)))
	res := &CleanResult{Inspection: in, Wide: t}

	if opt.DropDuplicates {
		n, err := clean.DropDuplicates(t, opt.ID)
		if err != nil {
			return nil, err
		}
		res.Duplicates = n
		log.Info("duplicates dropped", zap.Int("rows", n))
	}
	// Recode counts only the rows that survive deduplication.
	if opt.Class != "" && t.Has(opt.Class) {
		rr, err := clean.RecodeClass(t, opt.Class, opt.Labels())
		if err != nil {
			return nil, err
		}
		res.Recode = &rr
		log.Info("class recoded",
			zap.Int("recoded", rr.Recoded), zap.Int("kept", rr.Kept),
			zap.Any("unmapped", rr.Unmapped))
	}
	if opt.IQRFactor > 0 {
		cols := t.NumericColumns(opt.ID, opt.Class)
		n, fences, err := clean.FilterIQR(t, cols, opt.IQRFactor)
		if err != nil {
			return nil, err
		}
		res.Outliers, res.Fences = n, fences
		log.Info("outliers removed", zap.Int("rows", n), zap.Float64("factor", opt.IQRFactor))
	}
	rows, cols := t.Shape()
	log.Debug("clean done", zap.Int("rows", rows), zap.Int("cols", cols))
	return res, nil
}

// Long reshapes a cleaned wide table into (ID, class, trial) records.
func Long(t *table.Table, opt Options, log *zap.Logger) (*table.Table, *reshape.Layout, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ro := opt.reshapeOptions(t)
	layout, err := reshape.Plan(t, ro)
	if err != nil {
		return nil, nil, fmt.Errorf("reshape: %w", err)
	}
	for name, trials := range layout.Incomplete {
		log.Warn("trials dropped by join", zap.String("metric", name), zap.Ints("trials", trials))
	}
	long, err := reshape.ToLong(t, ro)
	if err != nil {
		return nil, nil, fmt.Errorf("reshape: %w", err)
	}
	rows, cols := long.Shape()
	log.Info("reshaped to long",
		zap.Int("metrics", len(layout.Metrics)), zap.Int("trials", len(layout.Trials)),
		zap.Int("rows", rows), zap.Int("cols", cols))
	return long, layout, nil
}

// ReduceResult is the outcome of Reduce.
type ReduceResult struct {
	LowVariance []string
	Correlated  []string
	Features    []string
	Scales      []reduce.Scale
	// Table holds one row per subject: ID, class, standardized features,
	// or the principal components when PCA is on, plus the cluster label.
	Table *table.Table
	// Columns are the numeric feature columns of Table.
	Columns     []string
	PCA         *reduce.PCAResult
	Clusters    *cluster.Result
	Binnings    []reduce.Binning
	Discretized *table.Table
}

// Reduce drops near-constant and redundant features, rounds, standardizes
// and averages per subject. PCA, KMeans and binning run when enabled.
// The ID and class columns never take part in any reduction.
func Reduce(t *table.Table, opt Options, log *zap.Logger) (*ReduceResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	res := &ReduceResult{}
	cols := t.NumericColumns(opt.ID, opt.Class)
	if len(cols) == 0 {
		return nil, fmt.Errorf("reduce: no numeric feature columns")
	}

	low, err := reduce.DropLowVariance(t, cols, opt.VarianceThreshold)
	if err != nil {
		return nil, fmt.Errorf("variance filter: %w", err)
	}
	res.LowVariance = low
	cols = reduce.Without(cols, low...)
	log.Info("low variance columns dropped", zap.Int("count", len(low)), zap.Float64("threshold", opt.VarianceThreshold))

	if opt.CorrelationThreshold > 0 && opt.CorrelationThreshold < 1 {
		corr, err := reduce.DropCorrelated(t, cols, opt.CorrelationThreshold)
		if err != nil {
			return nil, fmt.Errorf("correlation prune: %w", err)
		}
		res.Correlated = corr
		cols = reduce.Without(cols, corr...)
		log.Info("correlated columns dropped", zap.Int("count", len(corr)), zap.Float64("threshold", opt.CorrelationThreshold))
	}

	if opt.RoundDecimals >= 0 {
		if err := reduce.Round(t, cols, opt.RoundDecimals); err != nil {
			return nil, err
		}
	}
	scales, err := reduce.Standardize(t, cols)
	if err != nil {
		return nil, fmt.Errorf("standardize: %w", err)
	}
	res.Scales = scales
	res.Features = cols

	// class is constant per subject, so its mean is the code itself
	agg := cols
	if opt.Class != "" && t.IsNumeric(opt.Class) {
		agg = append([]string{opt.Class}, cols...)
	}
	var out *table.Table
	if t.Has(opt.ID) {
		out, err = reduce.GroupMean(t, opt.ID, agg)
		if err != nil {
			return nil, err
		}
	} else {
		out, err = t.Select(agg...)
		if err != nil {
			return nil, err
		}
	}
	rows, _ := out.Shape()
	log.Info("aggregated per subject", zap.Int("subjects", rows), zap.Int("features", len(cols)))

	features := cols
	if opt.PCAComponents > 0 {
		keep := reduce.Without(out.Columns, cols...)
		pca, err := reduce.PCA(out, cols, opt.PCAComponents, keep)
		if err != nil {
			return nil, err
		}
		res.PCA = pca
		out = pca.Table
		features = reduce.Without(out.Columns, keep...)
		log.Info("pca", zap.Int("components", opt.PCAComponents), zap.Float64("explained", explained(pca)))
	}

	if opt.KMeansClusters > 0 {
		km, err := cluster.KMeans(out, features, opt.KMeansClusters, opt.KMeansIterations)
		if err != nil {
			return nil, err
		}
		if err := cluster.Assign(out, km, cluster.DefaultColumn); err != nil {
			return nil, err
		}
		res.Clusters = km
		log.Info("kmeans", zap.Int("k", km.K), zap.Ints("sizes", km.Sizes))
	}

	if opt.Bins > 0 {
		d := out.Clone()
		b, err := reduce.Discretize(d, features, opt.Bins, opt.BinStrategy)
		if err != nil {
			return nil, err
		}
		res.Binnings, res.Discretized = b, d
		log.Info("discretized", zap.Int("bins", opt.Bins), zap.String("strategy", string(opt.BinStrategy)))
	}

	res.Table = out
	res.Columns = features
	return res, nil
}

// explained sums PCA explained-variance ratios, ignoring NaN.
func explained(p *reduce.PCAResult) float64 {
	if p == nil {
		return 0
	}
	var s float64
	for _, r := range p.ExplainedRatio {
		if !math.IsNaN(r) {
			s += r
		}
	}
	return s
}
