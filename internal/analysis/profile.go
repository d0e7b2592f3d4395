package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/darwinprep/internal/table"
	"gonum.org/v1/gonum/stat"
)

// Options controls profile behavior for a loaded table.
type Options struct {
	// MaxRows limits rows profiled; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly profile of a tabular dataset.
type Report struct {
	Name      string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	Groups    []GroupResult
	Corr      *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|unknown
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Profile summarizes t. name is only used as the report title.
func Profile(t *table.Table, name string, opt Options) *Report {
	rep := &Report{Name: name, Rows: len(t.Rows)}
	maxRows := opt.MaxRows
	if maxRows <= 0 || maxRows > len(t.Rows) {
		maxRows = len(t.Rows)
	}
	rows := t.Rows[:maxRows]
	rep.Processed = len(rows)
	sampleRows := opt.SampleRows
	if sampleRows < 0 {
		sampleRows = 0
	}
	for i := 0; i < len(rows) && i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, append([]string(nil), rows[i]...))
	}

	numeric := map[int][]float64{}
	for j, col := range t.Columns {
		s := ColumnSummary{Name: col}
		var nums []float64
		var dtCnt, txtCnt int
		cats := map[string]int{}
		for _, row := range rows {
			v := row[j]
			if table.IsMissing(v) {
				s.Missing++
				continue
			}
			s.NonNull++
			if x := table.ParseFloat(v); !math.IsNaN(x) {
				nums = append(nums, x)
				continue
			}
			if parseTimeMaybe(v) {
				dtCnt++
				continue
			}
			txtCnt++
			if len(v) <= 64 {
				cats[v]++
			}
			if len(s.ExampleTexts) < 3 {
				s.ExampleTexts = append(s.ExampleTexts, v)
			}
		}
		switch {
		case len(nums) > 0 && len(nums) >= dtCnt && len(nums) >= txtCnt:
			s.Kind = "numeric"
			s.ExampleTexts = nil
			summarizeNumeric(&s, nums, opt)
			numeric[j] = columnValues(rows, j)
		case dtCnt > 0 && dtCnt >= txtCnt:
			s.Kind = "datetime"
			s.ExampleTexts = nil
		case len(cats) > 0:
			s.Kind = "categorical"
			s.ExampleTexts = nil
			s.TopValues = topValues(cats, 8)
			s.Unique = len(cats)
		case txtCnt > 0:
			s.Kind = "text"
		default:
			s.Kind = "unknown"
		}
		rep.Cols = append(rep.Cols, s)
	}

	if rep.Processed < rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	numIdx := make([]int, 0, len(numeric))
	for j := range t.Columns {
		if _, ok := numeric[j]; ok {
			numIdx = append(numIdx, j)
		}
	}
	if len(opt.GroupBy) > 0 {
		rep.Groups = groupSummaries(t, rows, opt.GroupBy, numIdx)
	}
	if opt.Correlations && len(numIdx) >= 2 {
		rep.Corr = correlationMatrix(t.Columns, numIdx, numeric)
	}
	return rep
}

func summarizeNumeric(s *ColumnSummary, nums []float64, opt Options) {
	s.Min, s.Max = nums[0], nums[0]
	for _, x := range nums {
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	s.Mean = stat.Mean(nums, nil)
	if len(nums) > 1 {
		s.Std = stat.StdDev(nums, nil)
	}
	if !opt.Outliers || len(nums) < 8 {
		return
	}
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(nums)
	s.OutlierThreshold = thr
	if mad == 0 {
		return
	}
	for _, v := range nums {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			s.OutliersCount++
		}
		if az > s.OutliersMaxAbsZ {
			s.OutliersMaxAbsZ = az
		}
	}
}

func columnValues(rows [][]string, j int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = table.ParseFloat(row[j])
	}
	return out
}

func topValues(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func groupSummaries(t *table.Table, rows [][]string, groupBy []string, numIdx []int) []GroupResult {
	var keyIdx []int
	for _, name := range groupBy {
		for j, c := range t.Columns {
			if strings.EqualFold(c, strings.TrimSpace(name)) {
				keyIdx = append(keyIdx, j)
				break
			}
		}
	}
	if len(keyIdx) == 0 {
		return nil
	}
	type acc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
		min  map[int]float64
		max  map[int]float64
	}
	groups := map[string]*acc{}
	for _, row := range rows {
		parts := make([]string, len(keyIdx))
		for i, k := range keyIdx {
			parts[i] = fmt.Sprintf("%s=%s", t.Columns[k], safeVal(row[k]))
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
			groups[key] = g
		}
		g.size++
		for _, j := range numIdx {
			x := table.ParseFloat(row[j])
			if math.IsNaN(x) {
				continue
			}
			g.sum[j] += x
			g.cnt[j]++
			if m, ok := g.min[j]; !ok || x < m {
				g.min[j] = x
			}
			if m, ok := g.max[j]; !ok || x > m {
				g.max[j] = x
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, g := range groups {
		gr := GroupResult{Key: k, Size: g.size, Metrics: map[string]NumSummary{}}
		for _, j := range numIdx {
			if g.cnt[j] == 0 {
				continue
			}
			gr.Metrics[t.Columns[j]] = NumSummary{Count: g.cnt[j], Min: g.min[j], Max: g.max[j], Mean: g.sum[j] / float64(g.cnt[j])}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

func correlationMatrix(cols []string, numIdx []int, numeric map[int][]float64) *CorrMatrix {
	n := len(numIdx)
	names := make([]string, n)
	mat := make([][]float64, n)
	for a := range numIdx {
		names[a] = cols[numIdx[a]]
		mat[a] = make([]float64, n)
		mat[a][a] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := PairwisePearson(numeric[numIdx[a]], numeric[numIdx[b]])
			if math.IsNaN(r) {
				r = 0
			}
			mat[a][b], mat[b][a] = r, r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

// PairwisePearson correlates x and y over rows where both are present.
// It returns NaN when fewer than two such rows exist or either side is constant.
func PairwisePearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if i >= len(y) || math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}

func parseTimeMaybe(s string) bool {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05",
	}
	for _, l := range layouts {
		if _, err := time.Parse(l, s); err == nil {
			return true
		}
	}
	return false
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = Quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = Quantile(dev, 0.5)
	return
}
