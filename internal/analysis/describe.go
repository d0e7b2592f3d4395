package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/darwinprep/internal/table"
	"gonum.org/v1/gonum/stat"
)

// Stats is the per-column summary printed by describe.
type Stats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

// Describe summarizes numeric columns: count, mean, sample std, min,
// quartiles (linear interpolation) and max. Missing values are skipped.
func Describe(t *table.Table, cols []string) ([]Stats, error) {
	out := make([]Stats, 0, len(cols))
	for _, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		x := Present(vals)
		s := Stats{Column: c, Count: len(x)}
		if len(x) == 0 {
			nan := math.NaN()
			s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
			out = append(out, s)
			continue
		}
		sort.Float64s(x)
		s.Mean = stat.Mean(x, nil)
		s.Std = math.NaN()
		if len(x) > 1 {
			s.Std = stat.StdDev(x, nil)
		}
		s.Min = x[0]
		s.Max = x[len(x)-1]
		s.Q25 = Quantile(x, 0.25)
		s.Q50 = Quantile(x, 0.5)
		s.Q75 = Quantile(x, 0.75)
		out = append(out, s)
	}
	return out, nil
}

// FormatDescribe renders stats as an aligned text table, one row per column.
func FormatDescribe(stats []Stats) string {
	var b strings.Builder
	width := len("column")
	for _, s := range stats {
		if len(s.Column) > width {
			width = len(s.Column)
		}
	}
	fmt.Fprintf(&b, "%-*s %7s %12s %12s %12s %12s %12s %12s %12s\n", width, "column", "count", "mean", "std", "min", "25%", "50%", "75%", "max")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-*s %7d %12.4g %12.4g %12.4g %12.4g %12.4g %12.4g %12.4g\n",
			width, s.Column, s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max)
	}
	return b.String()
}

// ColumnCount pairs a column with a count.
type ColumnCount struct {
	Column string
	Count  int
}

// MissingCounts returns the number of missing cells per column in header order.
func MissingCounts(t *table.Table) []ColumnCount {
	out := make([]ColumnCount, len(t.Columns))
	for j, c := range t.Columns {
		out[j].Column = c
		for _, row := range t.Rows {
			if table.IsMissing(row[j]) {
				out[j].Count++
			}
		}
	}
	return out
}

// TotalMissing sums MissingCounts.
func TotalMissing(t *table.Table) int {
	n := 0
	for _, c := range MissingCounts(t) {
		n += c.Count
	}
	return n
}

// DuplicateValues returns values of col that occur more than once, in
// first-appearance order.
func DuplicateValues(t *table.Table, col string) ([]string, error) {
	cells, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	var dups []string
	for _, v := range cells {
		counts[v]++
		if counts[v] == 2 {
			dups = append(dups, v)
		}
	}
	return dups, nil
}

// NegativeColumns lists numeric columns with at least one value below zero.
func NegativeColumns(t *table.Table, exclude ...string) []ColumnCount {
	var out []ColumnCount
	for _, c := range t.NumericColumns(exclude...) {
		vals, _ := t.Floats(c)
		n := 0
		for _, v := range vals {
			if v < 0 {
				n++
			}
		}
		if n > 0 {
			out = append(out, ColumnCount{Column: c, Count: n})
		}
	}
	return out
}

// CategoryCount is one entry of a value count.
type CategoryCount struct {
	Value string
	Count int
}

// ValueCounts counts distinct cell values of col, most frequent first.
// Missing cells are counted under the empty value.
func ValueCounts(t *table.Table, col string) ([]CategoryCount, error) {
	cells, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	m := map[string]int{}
	for _, v := range cells {
		if table.IsMissing(v) {
			v = ""
		}
		m[v]++
	}
	out := make([]CategoryCount, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// TimeColumns returns columns whose lower-cased name contains "time".
func TimeColumns(t *table.Table) []string {
	var out []string
	for _, c := range t.Columns {
		if strings.Contains(strings.ToLower(c), "time") {
			out = append(out, c)
		}
	}
	return out
}

// Quantile returns the q-quantile of sorted values using linear
// interpolation between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Present drops NaN values.
func Present(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
