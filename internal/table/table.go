// Package table holds the in-memory representation of a dataset: a header
// and string cells, with numeric views computed on demand.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrColumnNotFound is returned when a named column is absent.
var ErrColumnNotFound = errors.New("column not found")

// Table is a rectangular dataset. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given header.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) { return len(t.Rows), len(t.Columns) }

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

func (t *Table) lookup(name string) (int, error) {
	idx := t.Index(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return idx, nil
}

// Column returns a copy of the cells of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats returns the named column as float64. Missing or unparseable cells are NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	idx, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = ParseFloat(row[idx])
	}
	return out, nil
}

// IsNumeric reports whether every non-missing cell of the column parses as a
// number and at least one cell is present.
func (t *Table) IsNumeric(name string) bool {
	idx := t.Index(name)
	if idx < 0 {
		return false
	}
	seen := false
	for _, row := range t.Rows {
		v := row[idx]
		if IsMissing(v) {
			continue
		}
		if _, ok := parseNumeric(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// NumericColumns lists numeric columns in header order, skipping exclude.
func (t *Table) NumericColumns(exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	var out []string
	for _, c := range t.Columns {
		if _, ok := skip[c]; ok {
			continue
		}
		if t.IsNumeric(c) {
			out = append(out, c)
		}
	}
	return out
}

// SetFloats overwrites the named column with formatted values.
func (t *Table) SetFloats(name string, vals []float64) error {
	idx, err := t.lookup(name)
	if err != nil {
		return err
	}
	if len(vals) != len(t.Rows) {
		return fmt.Errorf("set %s: %d values for %d rows", name, len(vals), len(t.Rows))
	}
	for i, row := range t.Rows {
		row[idx] = FormatFloat(vals[i])
	}
	return nil
}

// AppendColumn adds a column at the end of the header.
func (t *Table) AppendColumn(name string, cells []string) error {
	if t.Has(name) {
		return fmt.Errorf("append %s: column already exists", name)
	}
	if len(cells) != len(t.Rows) {
		return fmt.Errorf("append %s: %d values for %d rows", name, len(cells), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], cells[i])
	}
	return nil
}

// DropColumns removes the named columns; unknown names are ignored.
func (t *Table) DropColumns(names ...string) {
	if len(names) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	keep := make([]int, 0, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := drop[c]; ok {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}
	if len(keep) == len(t.Columns) {
		return
	}
	for r, row := range t.Rows {
		nr := make([]string, len(keep))
		for j, idx := range keep {
			nr[j] = row[idx]
		}
		t.Rows[r] = nr
	}
	t.Columns = cols
}

// Select returns a new table with the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	idxs := make([]int, len(names))
	for i, n := range names {
		idx, err := t.lookup(n)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	out := New(names...)
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]string, len(idxs))
		for j, idx := range idxs {
			nr[j] = row[idx]
		}
		out.Rows[r] = nr
	}
	return out, nil
}

// FilterRows keeps the rows for which keep returns true.
func (t *Table) FilterRows(keep func(i int, row []string) bool) int {
	kept := t.Rows[:0]
	removed := 0
	for i, row := range t.Rows {
		if keep(i, row) {
			kept = append(kept, row)
			continue
		}
		removed++
	}
	t.Rows = kept
	return removed
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		nr := make([]string, len(row))
		copy(nr, row)
		out.Rows[i] = nr
	}
	return out
}

// AddRow appends a row, padding or truncating to the header width.
// Readers reject over-wide rows before they get here.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {},
}

// IsMissing reports whether a cell counts as a missing value.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// ParseFloat parses a cell, returning NaN when it is missing or not numeric.
func ParseFloat(s string) float64 {
	if IsMissing(s) {
		return math.NaN()
	}
	f, ok := parseNumeric(s)
	if !ok {
		return math.NaN()
	}
	return f
}

// FormatFloat renders the shortest representation that round-trips in plain
// decimal notation; NaN is empty. Only extreme magnitudes use an exponent.
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, true
	}
	// Decimal comma: "1.234,5" or "0,5". Thousands separators differ from the decimal one.
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	dec, thou := ".", ","
	if cpos > dpos {
		dec, thou = ",", "."
	}
	raw = strings.ReplaceAll(raw, thou, "")
	raw = strings.ReplaceAll(raw, " ", "")
	if dec != "." {
		raw = strings.ReplaceAll(raw, dec, ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
