// Package reduce implements the dimensionality and numerosity reduction
// steps: variance filtering, correlation pruning, rounding, standardization,
// per-subject aggregation, PCA and discretization.
package reduce

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/darwinprep/internal/analysis"
	"github.com/KaramelBytes/darwinprep/internal/table"
	"gonum.org/v1/gonum/stat"
)

// DropLowVariance drops columns whose sample variance is below threshold.
// Columns with fewer than two values have no variance and are kept.
func DropLowVariance(t *table.Table, cols []string, threshold float64) ([]string, error) {
	var drop []string
	for _, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		x := analysis.Present(vals)
		if len(x) < 2 {
			continue
		}
		if stat.Variance(x, nil) < threshold {
			drop = append(drop, c)
		}
	}
	t.DropColumns(drop...)
	return drop, nil
}

// DropCorrelated walks cols in order and drops column j when its absolute
// Pearson correlation with any earlier column i exceeds threshold. Earlier
// columns are compared whether or not they were dropped themselves.
func DropCorrelated(t *table.Table, cols []string, threshold float64) ([]string, error) {
	data := make([][]float64, len(cols))
	for i, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		data[i] = vals
	}
	var drop []string
	for j := 1; j < len(cols); j++ {
		for i := 0; i < j; i++ {
			r := analysis.PairwisePearson(data[i], data[j])
			if !math.IsNaN(r) && math.Abs(r) > threshold {
				drop = append(drop, cols[j])
				break
			}
		}
	}
	t.DropColumns(drop...)
	return drop, nil
}

// Round rounds every value of cols to decimals places, halves to even.
func Round(t *table.Table, cols []string, decimals int) error {
	p := math.Pow(10, float64(decimals))
	for _, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return err
		}
		for i, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			vals[i] = math.RoundToEven(v*p) / p
		}
		if err := t.SetFloats(c, vals); err != nil {
			return err
		}
	}
	return nil
}

// Scale records the parameters used to standardize one column.
type Scale struct {
	Column string
	Mean   float64
	Std    float64
}

// Standardize rescales cols to zero mean and unit population variance.
// A constant column gets scale 1, so its values become 0.
func Standardize(t *table.Table, cols []string) ([]Scale, error) {
	scales := make([]Scale, 0, len(cols))
	for _, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		x := analysis.Present(vals)
		if len(x) == 0 {
			continue
		}
		mean := stat.Mean(x, nil)
		std := math.Sqrt(stat.PopVariance(x, nil))
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i, v := range vals {
			if !math.IsNaN(v) {
				vals[i] = (v - mean) / std
			}
		}
		if err := t.SetFloats(c, vals); err != nil {
			return nil, err
		}
		scales = append(scales, Scale{Column: c, Mean: mean, Std: std})
	}
	return scales, nil
}

// GroupMean aggregates rows sharing key into one row holding the key and
// the mean of each of cols, in first-appearance order of the key. Other
// columns are dropped.
func GroupMean(t *table.Table, key string, cols []string) (*table.Table, error) {
	kidx := t.Index(key)
	if kidx < 0 {
		return nil, fmt.Errorf("group by: %w: %s", table.ErrColumnNotFound, key)
	}
	data := make([][]float64, len(cols))
	for i, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		data[i] = vals
	}
	type acc struct {
		sum []float64
		cnt []int
	}
	var order []string
	groups := map[string]*acc{}
	for r, row := range t.Rows {
		k := row[kidx]
		g, ok := groups[k]
		if !ok {
			g = &acc{sum: make([]float64, len(cols)), cnt: make([]int, len(cols))}
			groups[k] = g
			order = append(order, k)
		}
		for i := range cols {
			if v := data[i][r]; !math.IsNaN(v) {
				g.sum[i] += v
				g.cnt[i]++
			}
		}
	}
	out := table.New(append([]string{key}, cols...)...)
	for _, k := range order {
		g := groups[k]
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, k)
		for i := range cols {
			if g.cnt[i] == 0 {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, table.FormatFloat(g.sum[i]/float64(g.cnt[i])))
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

// Without returns cols minus the protected names, preserving order.
func Without(cols []string, protected ...string) []string {
	skip := make(map[string]struct{}, len(protected))
	for _, p := range protected {
		skip[p] = struct{}{}
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, ok := skip[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
