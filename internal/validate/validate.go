// Package validate re-checks structural invariants of the raw wide file:
// every trial linked to an ID and class, no unrelated columns, one row per
// subject, and the same trial set for every metric.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/KaramelBytes/darwinprep/internal/reshape"
	"github.com/KaramelBytes/darwinprep/internal/table"
)

// ErrCheckFailed is wrapped by Report.Err when a hard check fails.
var ErrCheckFailed = errors.New("validation failed")

// DefaultMetricPrefixes lists the handwriting features expected in DARWIN.
func DefaultMetricPrefixes() []string {
	return []string{
		"air_time", "pressure", "disp_index", "gmrt",
		"max_x_extension", "max_y_extension",
		"mean_acc", "mean_jerk", "mean_speed",
		"num_of_pendown", "paper_time", "total_time",
	}
}

// Severity separates checks that fail validation from advisory ones.
type Severity string

const (
	Hard Severity = "hard"
	Soft Severity = "soft"
)

// Check is the outcome of a single invariant.
type Check struct {
	Name     string
	Severity Severity
	Passed   bool
	Message  string
	Details  []string
}

// Options names the key columns and the valid metric prefixes.
type Options struct {
	ID       string
	Class    string
	Prefixes []string
}

// Report collects every check run against one table.
type Report struct {
	Checks []Check
	// TrialsPerSubject is the number of trials surviving the long reshape.
	TrialsPerSubject int
}

// Run executes all checks. Missing key columns fail the linkage check
// instead of aborting.
func Run(t *table.Table, opt Options) *Report {
	if len(opt.Prefixes) == 0 {
		opt.Prefixes = DefaultMetricPrefixes()
	}
	rep := &Report{}
	rep.Checks = append(rep.Checks,
		linkage(t, opt),
		fragmentation(t, opt),
		duplication(t, opt),
	)
	completeness, trials := trialCompleteness(t, opt)
	rep.Checks = append(rep.Checks, completeness)
	rep.TrialsPerSubject = trials
	return rep
}

// Passed reports whether every hard check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if c.Severity == Hard && !c.Passed {
			return false
		}
	}
	return true
}

// Err returns nil when all hard checks passed, else an error wrapping
// ErrCheckFailed that names the failed checks.
func (r *Report) Err() error {
	var failed []string
	for _, c := range r.Checks {
		if c.Severity == Hard && !c.Passed {
			failed = append(failed, c.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCheckFailed, strings.Join(failed, ", "))
}

// Text renders the report with one status line per check.
func (r *Report) Text() string {
	var b strings.Builder
	for _, c := range r.Checks {
		mark := "✓"
		if !c.Passed {
			mark = "✗"
			if c.Severity == Soft {
				mark = "⚠"
			}
		}
		fmt.Fprintf(&b, "%s %s\n", mark, c.Message)
		limit := len(c.Details)
		if limit > 10 {
			limit = 10
		}
		for _, d := range c.Details[:limit] {
			fmt.Fprintf(&b, "   - %s\n", d)
		}
		if len(c.Details) > limit {
			fmt.Fprintf(&b, "   … %d more\n", len(c.Details)-limit)
		}
	}
	return b.String()
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func linkage(t *table.Table, opt Options) Check {
	c := Check{Name: "linkage", Severity: Hard}
	var cols []string
	for _, k := range []string{opt.ID, opt.Class} {
		if k == "" {
			continue
		}
		if !t.Has(k) {
			c.Details = append(c.Details, fmt.Sprintf("required column %q not found", k))
			continue
		}
		cols = append(cols, k)
	}
	for _, col := range t.Columns {
		if hasDigit(col) && col != opt.ID && col != opt.Class {
			cols = append(cols, col)
		}
	}
	for _, col := range cols {
		idx := t.Index(col)
		n := 0
		for _, row := range t.Rows {
			if table.IsMissing(row[idx]) {
				n++
			}
		}
		if n > 0 {
			c.Details = append(c.Details, fmt.Sprintf("%s: %d missing", col, n))
		}
	}
	c.Passed = len(c.Details) == 0
	if c.Passed {
		c.Message = "All trials are explicitly linked to IDs and class labels"
	} else {
		c.Message = "Missing links between trials and IDs/class"
	}
	return c
}

func fragmentation(t *table.Table, opt Options) Check {
	c := Check{Name: "fragmentation", Severity: Soft}
	for _, col := range t.Columns {
		if col == opt.ID || col == opt.Class {
			continue
		}
		known := false
		for _, p := range opt.Prefixes {
			if strings.Contains(col, p) {
				known = true
				break
			}
		}
		if !known {
			c.Details = append(c.Details, col)
		}
	}
	c.Passed = len(c.Details) == 0
	if c.Passed {
		c.Message = "No fragmented sections - all columns are valid handwriting metrics"
	} else {
		c.Message = fmt.Sprintf("Genuine fragmented columns: %d", len(c.Details))
	}
	return c
}

func duplication(t *table.Table, opt Options) Check {
	c := Check{Name: "duplication", Severity: Hard}
	if !t.Has(opt.ID) {
		c.Message = fmt.Sprintf("Cannot check duplication: column %q not found", opt.ID)
		return c
	}
	cells, _ := t.Column(opt.ID)
	counts := map[string]int{}
	for _, v := range cells {
		counts[v]++
	}
	var dups []string
	for v, n := range counts {
		if n > 1 {
			dups = append(dups, fmt.Sprintf("%s (%d rows)", v, n))
		}
	}
	sort.Strings(dups)
	c.Details = dups
	c.Passed = len(dups) == 0
	if c.Passed {
		c.Message = "Every subject has exactly one row"
	} else {
		c.Message = "IDs are duplicated (should be one row per subject)"
	}
	return c
}

func trialCompleteness(t *table.Table, opt Options) (Check, int) {
	c := Check{Name: "trial-completeness", Severity: Soft}
	keys := []string{opt.ID}
	if opt.Class != "" {
		keys = append(keys, opt.Class)
	}
	metrics, err := reshape.Metrics(t.Columns, keys...)
	if err != nil {
		c.Message = err.Error()
		return c, 0
	}
	if len(metrics) == 0 {
		c.Message = "No trial-indexed columns found"
		return c, 0
	}
	union := map[int]struct{}{}
	for _, m := range metrics {
		for _, tr := range m.Trials {
			union[tr] = struct{}{}
		}
	}
	complete := 0
	for tr := range union {
		all := true
		for _, m := range metrics {
			if !m.Has(tr) {
				all = false
				break
			}
		}
		if all {
			complete++
		}
	}
	for _, m := range metrics {
		if len(m.Trials) != len(union) {
			c.Details = append(c.Details, fmt.Sprintf("%s: %d of %d trials", m.Name, len(m.Trials), len(union)))
		}
	}
	c.Passed = len(c.Details) == 0
	if c.Passed {
		c.Message = fmt.Sprintf("All %d metrics cover the same %d trials", len(metrics), complete)
	} else {
		c.Message = fmt.Sprintf("Metrics cover different trials; %d trials are complete", complete)
	}
	return c, complete
}
