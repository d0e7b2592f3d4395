package clean

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/darwinprep/internal/analysis"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

// Inspection is the read-only summary taken before cleaning.
type Inspection struct {
	Rows, Cols   int
	Missing      []analysis.ColumnCount
	TotalMissing int
	DuplicateIDs []string
	TimeStats    []analysis.Stats
	Negative     []analysis.ColumnCount
}

// Inspect gathers shape, missing values, duplicate IDs, describe() of the
// numeric time columns and columns holding negative measurements.
func Inspect(t *table.Table, idCol, classCol string) (*Inspection, error) {
	in := &Inspection{}
	in.Rows, in.Cols = t.Shape()
	in.Missing = analysis.MissingCounts(t)
	for _, m := range in.Missing {
		in.TotalMissing += m.Count
	}
	if t.Has(idCol) {
		dups, err := analysis.DuplicateValues(t, idCol)
		if err != nil {
			return nil, err
		}
		in.DuplicateIDs = dups
	}
	var timeCols []string
	for _, c := range analysis.TimeColumns(t) {
		if t.IsNumeric(c) {
			timeCols = append(timeCols, c)
		}
	}
	stats, err := analysis.Describe(t, timeCols)
	if err != nil {
		return nil, err
	}
	in.TimeStats = stats
	in.Negative = analysis.NegativeColumns(t, idCol, classCol)
	return in, nil
}

// Summary renders the inspection as console text.
func (in *Inspection) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Initial data shape: (%d, %d)\n", in.Rows, in.Cols)
	fmt.Fprintf(&b, "Missing values: %d total\n", in.TotalMissing)
	for _, m := range in.Missing {
		if m.Count > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", m.Column, m.Count)
		}
	}
	if len(in.DuplicateIDs) > 0 {
		fmt.Fprintf(&b, "Duplicate IDs found: %s\n", strings.Join(in.DuplicateIDs, ", "))
	} else {
		b.WriteString("No duplicate IDs\n")
	}
	if len(in.TimeStats) > 0 {
		b.WriteString("\nTime variable statistics:\n")
		b.WriteString(analysis.FormatDescribe(in.TimeStats))
	}
	b.WriteString("\nColumns with negative values:")
	if len(in.Negative) == 0 {
		b.WriteString(" none\n")
	} else {
		b.WriteString("\n")
		for _, n := range in.Negative {
			fmt.Fprintf(&b, "  %s: %d\n", n.Column, n.Count)
		}
	}
	return b.String()
}
