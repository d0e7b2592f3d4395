package reshape

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/darwinprep/internal/table"
)

func mustTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tb, err := table.ReadCSV(strings.NewReader(csv), ',')
	require.NoError(t, err)
	return tb
}

func TestParseColumn(t *testing.T) {
	cases := []struct {
		in     string
		ok     bool
		prefix string
		trial  int
	}{
		{"air_time1", true, "air_time", 1},
		{"max_x_extension25", true, "max_x_extension", 25},
		{"gmrt_in_air07", true, "gmrt_in_air", 7},
		{"ID", false, "", 0},
		{"class", false, "", 0},
		{"2024", false, "", 0},
		{"x2y", false, "", 0},
	}
	for _, tc := range cases {
		c, ok := ParseColumn(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.prefix, c.Prefix, tc.in)
			assert.Equal(t, tc.trial, c.Trial, tc.in)
		}
	}
}

func TestMetricsExactPrefixGrouping(t *testing.T) {
	// "mean_acc" must not swallow "mean_acc_in_air" columns.
	cols := []string{"ID", "class", "mean_acc1", "mean_acc_in_air1", "mean_acc2", "mean_acc_in_air2"}
	ms, err := Metrics(cols, "ID", "class")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "mean_acc", ms[0].Name)
	assert.Equal(t, []int{1, 2}, ms[0].Trials)
	assert.Equal(t, "mean_acc_in_air2", ms[1].Columns[2])
}

func TestMetricsAmbiguous(t *testing.T) {
	_, err := Metrics([]string{"a1", "a01"})
	assert.True(t, errors.Is(err, ErrAmbiguousColumn))
}

func TestToLong(t *testing.T) {
	wide := mustTable(t, ""+
		"ID,class,air_time1,pressure1,air_time2,pressure2\n"+
		"id_1,0,10,100,11,110\n"+
		"id_2,1,20,,21,210\n")
	long, err := ToLong(wide, Options{ID: "ID", Class: "class"})
	require.NoError(t, err)

	want := &table.Table{
		Columns: []string{"ID", "class", "trial", "air_time", "pressure"},
		Rows: [][]string{
			{"id_1", "0", "1", "10", "100"},
			{"id_1", "0", "2", "11", "110"},
			{"id_2", "1", "1", "20", ""},
			{"id_2", "1", "2", "21", "210"},
		},
	}
	if diff := cmp.Diff(want, long); diff != "" {
		t.Fatalf("long table mismatch (-want +got):\n%s", diff)
	}
}

func TestToLongInnerJoinDropsIncompleteTrials(t *testing.T) {
	wide := mustTable(t, ""+
		"ID,class,a1,b1,a2,a3,b3\n"+
		"s1,P,1,2,3,4,5\n")
	l, err := Plan(wide, Options{ID: "ID", Class: "class"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, l.Trials)
	assert.Equal(t, map[string][]int{"a": {2}}, l.Incomplete)

	long, err := ToLong(wide, Options{ID: "ID", Class: "class"})
	require.NoError(t, err)
	want := [][]string{
		{"s1", "P", "1", "1", "2"},
		{"s1", "P", "3", "4", "5"},
	}
	if diff := cmp.Diff(want, long.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestToLongWithoutClass(t *testing.T) {
	wide := mustTable(t, "ID,a1,a2\ns1,1,2\n")
	long, err := ToLong(wide, Options{ID: "ID"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "trial", "a"}, long.Columns)
	assert.Len(t, long.Rows, 2)
}

func TestToLongErrors(t *testing.T) {
	dup := mustTable(t, "ID,class,a1\ns1,P,1\ns1,H,2\n")
	_, err := ToLong(dup, Options{ID: "ID", Class: "class"})
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	none := mustTable(t, "ID,class,score\ns1,P,1\n")
	_, err = ToLong(none, Options{ID: "ID", Class: "class"})
	assert.True(t, errors.Is(err, ErrNoTrialColumns))

	noKey := mustTable(t, "subject,a1\ns1,1\n")
	_, err = ToLong(noKey, Options{ID: "ID"})
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))
}

func TestToWideInvertsToLong(t *testing.T) {
	wide := mustTable(t, ""+
		"ID,class,air_time1,pressure1,air_time2,pressure2\n"+
		"id_1,0,10,100,11,110\n"+
		"id_2,1,20,,21,210\n")
	opt := Options{ID: "ID", Class: "class"}
	long, err := ToLong(wide, opt)
	require.NoError(t, err)
	back, err := ToWide(long, opt)
	require.NoError(t, err)
	if diff := cmp.Diff(wide, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToWideRejectsRepeatedTrial(t *testing.T) {
	long := mustTable(t, "ID,trial,a\ns1,1,5\ns1,1,6\n")
	_, err := ToWide(long, Options{ID: "ID"})
	assert.True(t, errors.Is(err, ErrDuplicateKey))
}
