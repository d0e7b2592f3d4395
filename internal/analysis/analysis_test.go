package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/darwinprep/internal/table"
)

var profileRows = []string{
	"ID,class,Score,Other,Category,total_time1",
	"id_1,P,10,1,alpha,100",
	"id_2,H,11,2,alpha,110",
	"id_3,P,9.5,3,beta,",
	"id_4,H,10.5,4,alpha,90",
	"id_5,P,9.8,5,beta,95",
	"id_6,H,10.2,6,alpha,-5",
	"id_7,P,8.8,7,gamma,80",
	"id_8,H,9.7,8,beta,85",
	"id_9,P,50,9,alpha,120",
	"id_9,H,10.1,10,gamma,100",
}

func loadProfileTable(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.ReadCSV(strings.NewReader(strings.Join(profileRows, "\n")), ',')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return tb
}

func TestDescribeQuartiles(t *testing.T) {
	tb, err := table.ReadCSV(strings.NewReader("x\n1\n2\n3\n4\nNA\n"), ',')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	stats, err := Describe(tb, []string{"x"})
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	s := stats[0]
	if s.Count != 4 {
		t.Fatalf("count = %d, want 4", s.Count)
	}
	checks := map[string][2]float64{
		"mean": {s.Mean, 2.5},
		"std":  {s.Std, math.Sqrt(5.0 / 3.0)},
		"min":  {s.Min, 1},
		"25%":  {s.Q25, 1.75},
		"50%":  {s.Q50, 2.5},
		"75%":  {s.Q75, 3.25},
		"max":  {s.Max, 4},
	}
	for name, c := range checks {
		if !almostEqual(c[0], c[1], 1e-9) {
			t.Fatalf("%s = %f, want %f", name, c[0], c[1])
		}
	}
	out := FormatDescribe(stats)
	if !strings.Contains(out, "25%") || !strings.Contains(out, "x ") {
		t.Fatalf("unexpected describe output: %q", out)
	}
}

func TestInspectionHelpers(t *testing.T) {
	tb := loadProfileTable(t)

	dups, err := DuplicateValues(tb, "ID")
	if err != nil {
		t.Fatalf("dups: %v", err)
	}
	if len(dups) != 1 || dups[0] != "id_9" {
		t.Fatalf("dups = %#v", dups)
	}

	miss := MissingCounts(tb)
	if miss[5].Column != "total_time1" || miss[5].Count != 1 {
		t.Fatalf("missing = %#v", miss)
	}
	if TotalMissing(tb) != 1 {
		t.Fatalf("total missing = %d", TotalMissing(tb))
	}

	neg := NegativeColumns(tb, "class")
	if len(neg) != 1 || neg[0].Column != "total_time1" || neg[0].Count != 1 {
		t.Fatalf("negatives = %#v", neg)
	}

	vc, err := ValueCounts(tb, "class")
	if err != nil {
		t.Fatalf("value counts: %v", err)
	}
	if len(vc) != 2 || vc[0].Count != 5 || vc[1].Count != 5 || vc[0].Value != "H" {
		t.Fatalf("value counts = %#v", vc)
	}

	if tc := TimeColumns(tb); len(tc) != 1 || tc[0] != "total_time1" {
		t.Fatalf("time columns = %#v", tc)
	}
}

func TestProfileAndMarkdown(t *testing.T) {
	tb := loadProfileTable(t)
	opt := DefaultOptions()
	opt.MaxRows = 9
	opt.SampleRows = 3
	opt.GroupBy = []string{"class"}
	opt.Correlations = true

	rep := Profile(tb, "darwin.csv", opt)
	if rep.Rows != 10 || rep.Processed != 9 {
		t.Fatalf("rows = %d processed = %d", rep.Rows, rep.Processed)
	}
	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d", len(rep.Samples))
	}
	score := columnByName(t, rep, "Score")
	if score.Kind != "numeric" {
		t.Fatalf("score kind = %q", score.Kind)
	}
	if score.OutliersCount != 1 {
		t.Fatalf("score outliers = %d, want 1", score.OutliersCount)
	}
	cat := columnByName(t, rep, "Category")
	if cat.Kind != "categorical" || cat.TopValues[0].Value != "alpha" || cat.TopValues[0].Count != 5 {
		t.Fatalf("category = %#v", cat)
	}
	if len(rep.Groups) != 2 || rep.Groups[0].Key != "class=P" || rep.Groups[0].Size != 5 {
		t.Fatalf("groups = %#v", rep.Groups)
	}
	if rep.Corr == nil || len(rep.Corr.Columns) != 3 {
		t.Fatalf("corr = %#v", rep.Corr)
	}

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: darwin.csv",
		"Rows: 10 (processed 9)",
		"Score: numeric",
		"outliers: 1 above |z|>3.5",
		"[GROUP-BY SUMMARY]",
		"[CORRELATIONS]",
		"[HEAD AND SAMPLE ROWS]",
		"processed only 9/10 rows due to MaxRows",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestPairwisePearson(t *testing.T) {
	x := []float64{1, 2, math.NaN(), 4}
	y := []float64{2, 4, 100, 8}
	if r := PairwisePearson(x, y); !almostEqual(r, 1, 1e-12) {
		t.Fatalf("r = %f, want 1", r)
	}
	if r := PairwisePearson([]float64{1, 1, 1}, []float64{1, 2, 3}); !math.IsNaN(r) {
		t.Fatalf("constant column r = %f, want NaN", r)
	}
}

func columnByName(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found", name)
	return ColumnSummary{}
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
