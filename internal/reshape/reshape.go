// Package reshape converts the wide DARWIN layout, one row per subject with
// trial-indexed metric columns such as air_time1..air_time25, into long
// records keyed by (ID, class, trial), and back.
package reshape

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/KaramelBytes/darwinprep/internal/table"
)

var (
	// ErrDuplicateKey is returned when the ID column repeats a value.
	ErrDuplicateKey = errors.New("duplicate subject key")
	// ErrNoTrialColumns is returned when no column carries a trial suffix.
	ErrNoTrialColumns = errors.New("no trial-indexed columns")
	// ErrAmbiguousColumn is returned when two columns map to the same (metric, trial).
	ErrAmbiguousColumn = errors.New("ambiguous trial column")
)

// TrialColumn is the name "trial" used for the trial number in long tables.
const TrialColumn = "trial"

// Column is a parsed trial-indexed column name.
type Column struct {
	Name   string
	Prefix string
	Trial  int
}

// ParseColumn splits a column name into its metric prefix and trial number.
// A column is trial-indexed when it ends in ASCII digits preceded by a
// non-empty prefix: "air_time12" -> ("air_time", 12).
func ParseColumn(name string) (Column, bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) || i == 0 {
		return Column{}, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return Column{}, false
	}
	return Column{Name: name, Prefix: name[:i], Trial: n}, true
}

// Metric groups every trial column sharing one prefix.
type Metric struct {
	Name string
	// Trials is sorted ascending.
	Trials []int
	// Columns maps trial number to source column name.
	Columns map[int]string
}

// Has reports whether the metric has a column for trial.
func (m Metric) Has(trial int) bool {
	_, ok := m.Columns[trial]
	return ok
}

// Metrics groups trial columns by prefix, in first-appearance order.
// Columns named in keys are never treated as metrics.
func Metrics(columns []string, keys ...string) ([]Metric, error) {
	skip := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		skip[k] = struct{}{}
	}
	var out []Metric
	pos := map[string]int{}
	for _, name := range columns {
		if _, ok := skip[name]; ok {
			continue
		}
		c, ok := ParseColumn(name)
		if !ok {
			continue
		}
		i, seen := pos[c.Prefix]
		if !seen {
			i = len(out)
			pos[c.Prefix] = i
			out = append(out, Metric{Name: c.Prefix, Columns: map[int]string{}})
		}
		m := &out[i]
		if prev, dup := m.Columns[c.Trial]; dup {
			return nil, fmt.Errorf("%w: %s and %s both map to %s trial %d", ErrAmbiguousColumn, prev, name, c.Prefix, c.Trial)
		}
		m.Columns[c.Trial] = name
		m.Trials = append(m.Trials, c.Trial)
	}
	for i := range out {
		sort.Ints(out[i].Trials)
	}
	return out, nil
}

// Options names the key columns of the wide table.
type Options struct {
	ID string
	// Class is optional; when empty the long table is keyed by (ID, trial).
	Class string
}

func (o Options) keys() []string {
	if o.Class == "" {
		return []string{o.ID}
	}
	return []string{o.ID, o.Class}
}

// Layout describes how a wide table maps onto long records.
type Layout struct {
	Metrics []Metric
	// Trials present for every metric; these survive the join.
	Trials []int
	// Incomplete lists, per metric, trials that the join drops because some
	// other metric lacks them.
	Incomplete map[string][]int
}

// Plan inspects the header of t and returns the reshape layout.
func Plan(t *table.Table, opt Options) (*Layout, error) {
	for _, k := range opt.keys() {
		if !t.Has(k) {
			return nil, fmt.Errorf("%w: %s", table.ErrColumnNotFound, k)
		}
	}
	metrics, err := Metrics(t.Columns, opt.keys()...)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, ErrNoTrialColumns
	}
	l := &Layout{Metrics: metrics, Incomplete: map[string][]int{}}
	for _, trial := range metrics[0].Trials {
		all := true
		for _, m := range metrics[1:] {
			if !m.Has(trial) {
				all = false
				break
			}
		}
		if all {
			l.Trials = append(l.Trials, trial)
		}
	}
	common := make(map[int]struct{}, len(l.Trials))
	for _, tr := range l.Trials {
		common[tr] = struct{}{}
	}
	for _, m := range metrics {
		for _, tr := range m.Trials {
			if _, ok := common[tr]; !ok {
				l.Incomplete[m.Name] = append(l.Incomplete[m.Name], tr)
			}
		}
	}
	return l, nil
}

type longKey struct {
	subject int
	trial   int
}

// melt produces one record per (subject, trial) for a single metric.
func melt(t *table.Table, m Metric) map[longKey]string {
	out := make(map[longKey]string, len(t.Rows)*len(m.Trials))
	for _, trial := range m.Trials {
		idx := t.Index(m.Columns[trial])
		for r, row := range t.Rows {
			out[longKey{subject: r, trial: trial}] = row[idx]
		}
	}
	return out
}

// ToLong reshapes a wide table into long format.
//
// Each metric is melted into (subject, trial, value) records and the melts
// are inner-joined on (ID, class, trial). Output columns are the key columns,
// "trial", then one column per metric in first-appearance order. Rows follow
// input subject order, trials ascending.
func ToLong(t *table.Table, opt Options) (*table.Table, error) {
	l, err := Plan(t, opt)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(t, opt.ID); err != nil {
		return nil, err
	}
	melts := make([]map[longKey]string, len(l.Metrics))
	for i, m := range l.Metrics {
		melts[i] = melt(t, m)
	}

	keys := opt.keys()
	keyIdx := make([]int, len(keys))
	for i, k := range keys {
		keyIdx[i] = t.Index(k)
	}
	cols := append(append([]string{}, keys...), TrialColumn)
	for _, m := range l.Metrics {
		cols = append(cols, m.Name)
	}
	out := table.New(cols...)
	for r, row := range t.Rows {
		for _, trial := range l.Metrics[0].Trials {
			k := longKey{subject: r, trial: trial}
			rec := make([]string, 0, len(cols))
			for _, ki := range keyIdx {
				rec = append(rec, row[ki])
			}
			rec = append(rec, strconv.Itoa(trial))
			matched := true
			for _, mt := range melts {
				v, ok := mt[k]
				if !ok {
					matched = false
					break
				}
				rec = append(rec, v)
			}
			if matched {
				out.Rows = append(out.Rows, rec)
			}
		}
	}
	return out, nil
}

// ToWide pivots a long table back to one row per subject with
// <metric><trial> columns ordered trial-major. Missing combinations are empty.
func ToWide(long *table.Table, opt Options) (*table.Table, error) {
	keys := opt.keys()
	keyIdx := make([]int, len(keys))
	for i, k := range keys {
		idx := long.Index(k)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", table.ErrColumnNotFound, k)
		}
		keyIdx[i] = idx
	}
	trialIdx := long.Index(TrialColumn)
	if trialIdx < 0 {
		return nil, fmt.Errorf("%w: %s", table.ErrColumnNotFound, TrialColumn)
	}
	isKey := map[int]bool{trialIdx: true}
	for _, ki := range keyIdx {
		isKey[ki] = true
	}
	var metricIdx []int
	for i := range long.Columns {
		if !isKey[i] {
			metricIdx = append(metricIdx, i)
		}
	}

	type subject struct {
		keys   []string
		values map[string]string
	}
	var order []string
	subjects := map[string]*subject{}
	trialSet := map[int]struct{}{}
	for r, row := range long.Rows {
		trial, err := strconv.Atoi(row[trialIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid trial %q", r+1, row[trialIdx])
		}
		trialSet[trial] = struct{}{}
		id := row[keyIdx[0]]
		s, ok := subjects[id]
		if !ok {
			s = &subject{values: map[string]string{}}
			for _, ki := range keyIdx {
				s.keys = append(s.keys, row[ki])
			}
			subjects[id] = s
			order = append(order, id)
		}
		for _, mi := range metricIdx {
			col := long.Columns[mi] + strconv.Itoa(trial)
			if _, dup := s.values[col]; dup {
				return nil, fmt.Errorf("%w: %s trial %d", ErrDuplicateKey, id, trial)
			}
			s.values[col] = row[mi]
		}
	}
	trials := make([]int, 0, len(trialSet))
	for tr := range trialSet {
		trials = append(trials, tr)
	}
	sort.Ints(trials)

	cols := append([]string{}, keys...)
	for _, tr := range trials {
		for _, mi := range metricIdx {
			cols = append(cols, long.Columns[mi]+strconv.Itoa(tr))
		}
	}
	out := table.New(cols...)
	for _, id := range order {
		s := subjects[id]
		rec := append([]string{}, s.keys...)
		for _, c := range cols[len(keys):] {
			rec = append(rec, s.values[c])
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

func checkUnique(t *table.Table, col string) error {
	idx := t.Index(col)
	seen := make(map[string]int, len(t.Rows))
	for r, row := range t.Rows {
		if prev, ok := seen[row[idx]]; ok {
			return fmt.Errorf("%w: %s=%q on rows %d and %d", ErrDuplicateKey, col, row[idx], prev+1, r+1)
		}
		seen[row[idx]] = r
	}
	return nil
}
