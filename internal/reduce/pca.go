package reduce

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/darwinprep/internal/table"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrMissingValues is returned by steps that need complete rows.
var ErrMissingValues = errors.New("missing values present")

// PCAResult is the projected table and the explained variance per component.
type PCAResult struct {
	Table          *table.Table
	ExplainedRatio []float64
}

// Matrix builds an n×d matrix from cols. Any missing value is an error.
func Matrix(t *table.Table, cols []string) (*mat.Dense, error) {
	n, d := len(t.Rows), len(cols)
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("empty matrix: %d rows, %d columns", n, d)
	}
	m := mat.NewDense(n, d, nil)
	for j, c := range cols {
		vals, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: column %s row %d", ErrMissingValues, c, i+1)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// PCA projects cols onto their first k principal components. The result
// carries the keep columns followed by PC1..PCk.
func PCA(t *table.Table, cols []string, k int, keep []string) (*PCAResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("pca: components must be positive, got %d", k)
	}
	x, err := Matrix(t, cols)
	if err != nil {
		return nil, fmt.Errorf("pca: %w", err)
	}
	n, d := x.Dims()
	if limit := min(n, d); k > limit {
		return nil, fmt.Errorf("pca: %d components requested, at most %d available", k, limit)
	}
	// Center so the projection matches the usual (x - mean) · V convention.
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			x.Set(i, j, col[i]-mean)
		}
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("pca: decomposition failed")
	}
	vars := pc.VarsTo(nil)
	var total float64
	for _, v := range vars {
		total += v
	}
	ratio := make([]float64, k)
	for i := 0; i < k; i++ {
		if total > 0 {
			ratio[i] = vars[i] / total
		}
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	var proj mat.Dense
	proj.Mul(x, vecs.Slice(0, d, 0, k))

	out, err := t.Select(keep...)
	if err != nil {
		return nil, fmt.Errorf("pca: %w", err)
	}
	for c := 0; c < k; c++ {
		cells := make([]string, n)
		for i := 0; i < n; i++ {
			cells[i] = table.FormatFloat(proj.At(i, c))
		}
		if err := out.AppendColumn(fmt.Sprintf("PC%d", c+1), cells); err != nil {
			return nil, err
		}
	}
	return &PCAResult{Table: out, ExplainedRatio: ratio}, nil
}
