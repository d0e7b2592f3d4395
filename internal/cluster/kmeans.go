// Package cluster groups subjects with KMeans over standardized features.
package cluster

import (
	"fmt"
	"strconv"

	"github.com/mpraski/clusters"

	"github.com/KaramelBytes/darwinprep/internal/reduce"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

// DefaultColumn is the name of the label column added by Assign.
const DefaultColumn = "cluster"

// Result holds one label per row, numbered 0..K-1 in order of first appearance.
type Result struct {
	K      int
	Labels []int
	Sizes  []int
}

// KMeans clusters the rows of t on cols into k groups. Rows must be complete.
func KMeans(t *table.Table, cols []string, k, iterations int) (*Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("kmeans: k must be positive, got %d", k)
	}
	if iterations < 1 {
		iterations = 300
	}
	m, err := reduce.Matrix(t, cols)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}
	n, _ := m.Dims()
	if k > n {
		return nil, fmt.Errorf("kmeans: %d clusters requested for %d rows", k, n)
	}
	data := make([][]float64, n)
	for i := range data {
		data[i] = m.RawRowView(i)
	}
	c, err := clusters.KMeans(iterations, k, clusters.EuclideanDistance)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}
	if err := c.Learn(data); err != nil {
		return nil, fmt.Errorf("kmeans: learn: %w", err)
	}
	return normalize(c.Guesses()), nil
}

// normalize renumbers raw cluster ids to 0..K-1 by first appearance.
func normalize(raw []int) *Result {
	ids := map[int]int{}
	res := &Result{Labels: make([]int, len(raw))}
	for i, g := range raw {
		id, ok := ids[g]
		if !ok {
			id = len(ids)
			ids[g] = id
			res.Sizes = append(res.Sizes, 0)
		}
		res.Labels[i] = id
		res.Sizes[id]++
	}
	res.K = len(ids)
	return res
}

// Assign appends the labels to t as column name.
func Assign(t *table.Table, res *Result, name string) error {
	if name == "" {
		name = DefaultColumn
	}
	cells := make([]string, len(res.Labels))
	for i, l := range res.Labels {
		cells[i] = strconv.Itoa(l)
	}
	return t.AppendColumn(name, cells)
}
