package export

import (
	"fmt"

	"github.com/kshedden/gonpy"

	"github.com/KaramelBytes/darwinprep/internal/reduce"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

// WriteNpy writes cols of t as a row-major float64 matrix in NumPy .npy
// format. Every selected cell must be numeric.
func WriteNpy(path string, t *table.Table, cols []string) error {
	m, err := reduce.Matrix(t, cols)
	if err != nil {
		return fmt.Errorf("npy: %w", err)
	}
	rows, ncols := m.Dims()
	data := make([]float64, 0, rows*ncols)
	for i := 0; i < rows; i++ {
		data = append(data, m.RawRowView(i)...)
	}

	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("npy: open %s: %w", path, err)
	}
	w.Shape = []int{rows, ncols}
	w.Version = 2
	if err := w.WriteFloat64(data); err != nil {
		return fmt.Errorf("npy: write %s: %w", path, err)
	}
	return nil
}

// ReadNpy loads a 2-D float64 .npy file written by WriteNpy.
func ReadNpy(path string) (rows, cols int, data []float64, err error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("npy: open %s: %w", path, err)
	}
	if len(r.Shape) != 2 {
		return 0, 0, nil, fmt.Errorf("npy: %s has %d dimensions, want 2", path, len(r.Shape))
	}
	data, err = r.GetFloat64()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("npy: read %s: %w", path, err)
	}
	return r.Shape[0], r.Shape[1], data, nil
}
