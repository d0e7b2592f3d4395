package reduce

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/darwinprep/internal/analysis"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

// Strategy chooses how bin edges are placed.
type Strategy string

const (
	// Uniform bins have equal width between the column min and max.
	Uniform Strategy = "uniform"
	// Quantile bins hold roughly equal numbers of values.
	Quantile Strategy = "quantile"
)

// ParseStrategy accepts "uniform" or "quantile".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Uniform, Quantile:
		return Strategy(s), nil
	case "":
		return Uniform, nil
	}
	return "", fmt.Errorf("unknown bin strategy %q (use uniform|quantile)", s)
}

// Binning records the edges used for one column, from min to max.
type Binning struct {
	Column string
	Edges  []float64
}

// Discretize replaces each value of cols with its ordinal bin code 0..bins-1.
// A value equal to an inner edge falls into the upper bin. Quantile edges
// that coincide are merged, so such columns get fewer bins.
func Discretize(t *table.Table, cols []string, bins int, strategy Strategy) ([]Binning, error) {
	if bins < 2 {
		return nil, fmt.Errorf("discretize: need at least 2 bins, got %d", bins)
	}
	out := make([]Binning, 0, len(cols))
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
		edges := binEdges(x, bins, strategy)
		inner := edges[1 : len(edges)-1]
		cells := make([]string, len(vals))
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			cells[i] = strconv.Itoa(sort.Search(len(inner), func(k int) bool { return inner[k] > v }))
		}
		idx := t.Index(c)
		for i, row := range t.Rows {
			row[idx] = cells[i]
		}
		out = append(out, Binning{Column: c, Edges: edges})
	}
	return out, nil
}

func binEdges(sorted []float64, bins int, strategy Strategy) []float64 {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []float64{lo, hi}
	}
	edges := make([]float64, 0, bins+1)
	for k := 0; k <= bins; k++ {
		f := float64(k) / float64(bins)
		var e float64
		if strategy == Quantile {
			e = analysis.Quantile(sorted, f)
		} else {
			e = lo + f*(hi-lo)
		}
		if len(edges) > 0 && e <= edges[len(edges)-1] {
			continue
		}
		edges = append(edges, e)
	}
	return edges
}
