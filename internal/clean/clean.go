// Package clean holds the cleaning steps applied to the raw wide table:
// label recoding, de-duplication, IQR outlier removal and the inspection
// summary printed before anything is changed.
package clean

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/darwinprep/internal/analysis"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

// DefaultClassLabels maps the DARWIN class labels to codes. Both the long
// and the single-letter spellings are accepted.
func DefaultClassLabels() map[string]int {
	return map[string]int{"Patient": 0, "P": 0, "Healthy": 1, "H": 1}
}

// RecodeResult reports what RecodeClass changed.
type RecodeResult struct {
	Recoded  int
	Kept     int
	Unmapped map[string]int
	Counts   map[int]int
}

// RecodeClass replaces class labels with their integer codes. Cells that are
// already one of the codes are kept; unmapped labels become missing and are
// counted in the result. Labels match exactly first, then case-insensitively.
func RecodeClass(t *table.Table, col string, labels map[string]int) (RecodeResult, error) {
	res := RecodeResult{Unmapped: map[string]int{}, Counts: map[int]int{}}
	idx := t.Index(col)
	if idx < 0 {
		return res, fmt.Errorf("recode: %w: %s", table.ErrColumnNotFound, col)
	}
	codes := map[string]int{}
	folded := map[string]int{}
	for l, c := range labels {
		codes[strconv.Itoa(c)] = c
		folded[strings.ToLower(l)] = c
	}
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[idx])
		if table.IsMissing(v) {
			row[idx] = ""
			continue
		}
		c, ok := labels[v]
		if !ok {
			c, ok = folded[strings.ToLower(v)]
		}
		if ok {
			row[idx] = strconv.Itoa(c)
			res.Recoded++
			res.Counts[c]++
			continue
		}
		if c, ok := codes[v]; ok {
			row[idx] = v
			res.Kept++
			res.Counts[c]++
			continue
		}
		res.Unmapped[v]++
		row[idx] = ""
	}
	return res, nil
}

// DropDuplicates removes rows whose col value was already seen, keeping the
// first occurrence. It returns the number of rows removed.
func DropDuplicates(t *table.Table, col string) (int, error) {
	idx := t.Index(col)
	if idx < 0 {
		return 0, fmt.Errorf("dedupe: %w: %s", table.ErrColumnNotFound, col)
	}
	seen := make(map[string]struct{}, len(t.Rows))
	return t.FilterRows(func(_ int, row []string) bool {
		if _, ok := seen[row[idx]]; ok {
			return false
		}
		seen[row[idx]] = struct{}{}
		return true
	}), nil
}

// Fence is the accepted interval for one column.
type Fence struct {
	Column     string
	Q1, Q3     float64
	Low, High  float64
	Violations int
}

// IQRFences computes [Q1 - factor*IQR, Q3 + factor*IQR] for each column.
func IQRFences(t *table.Table, cols []string, factor float64) ([]Fence, error) {
	out := make([]Fence, 0, len(cols))
	for _, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		x := analysis.Present(vals)
		if len(x) == 0 {
			continue
		}
		sort.Float64s(x)
		q1 := analysis.Quantile(x, 0.25)
		q3 := analysis.Quantile(x, 0.75)
		iqr := q3 - q1
		out = append(out, Fence{Column: c, Q1: q1, Q3: q3, Low: q1 - factor*iqr, High: q3 + factor*iqr})
	}
	return out, nil
}

// FilterIQR removes every row with a value outside its column's IQR fence.
// Missing values never remove a row. Fences are computed once, before any
// row is dropped.
func FilterIQR(t *table.Table, cols []string, factor float64) (int, []Fence, error) {
	fences, err := IQRFences(t, cols, factor)
	if err != nil {
		return 0, nil, err
	}
	idx := make([]int, len(fences))
	for i, f := range fences {
		idx[i] = t.Index(f.Column)
	}
	removed := t.FilterRows(func(_ int, row []string) bool {
		keep := true
		for i := range fences {
			x := table.ParseFloat(row[idx[i]])
			if math.IsNaN(x) {
				continue
			}
			if x < fences[i].Low || x > fences[i].High {
				fences[i].Violations++
				keep = false
			}
		}
		return keep
	})
	return removed, fences, nil
}
