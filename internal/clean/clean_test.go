package clean

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/darwinprep/internal/table"
)

func load(t *testing.T, csv string) *table.Table {
	t.Helper()
	tb, err := table.ReadCSV(strings.NewReader(csv), ',')
	require.NoError(t, err)
	return tb
}

func TestRecodeClass(t *testing.T) {
	tb := load(t, "ID,class\na,Patient\nb,Healthy\nc,P\nd,H\ne,1\nf,Unknown\ng,\n")
	res, err := RecodeClass(tb, "class", DefaultClassLabels())
	require.NoError(t, err)

	col, _ := tb.Column("class")
	assert.Equal(t, []string{"0", "1", "0", "1", "1", "", ""}, col)
	assert.Equal(t, 4, res.Recoded)
	assert.Equal(t, 1, res.Kept)
	assert.Equal(t, map[string]int{"Unknown": 1}, res.Unmapped)
	assert.Equal(t, map[int]int{0: 2, 1: 3}, res.Counts)

	_, err = RecodeClass(tb, "label", DefaultClassLabels())
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))
}

func TestRecodeClassFoldsCase(t *testing.T) {
	tb := load(t, "ID,class\na,PATIENT\nb,healthy\n")
	// keys arrive lower-cased when loaded through viper
	res, err := RecodeClass(tb, "class", map[string]int{"patient": 0, "healthy": 1})
	require.NoError(t, err)
	col, _ := tb.Column("class")
	assert.Equal(t, []string{"0", "1"}, col)
	assert.Equal(t, 2, res.Recoded)
}

func TestDropDuplicatesKeepsFirst(t *testing.T) {
	tb := load(t, "ID,x\na,1\nb,2\na,3\n")
	n, err := DropDuplicates(tb, "ID")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	x, _ := tb.Column("x")
	assert.Equal(t, []string{"1", "2"}, x)
}

func TestFilterIQR(t *testing.T) {
	tb := load(t, "ID,x,y\n"+
		"a,1,10\n"+
		"b,2,11\n"+
		"c,3,\n"+
		"d,4,12\n"+
		"e,100,13\n")
	removed, fences, err := FilterIQR(tb, []string{"x", "y"}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.Len(t, fences, 2)
	// x: Q1=2, Q3=4, IQR=2 -> [-1, 7]
	assert.InDelta(t, -1.0, fences[0].Low, 1e-9)
	assert.InDelta(t, 7.0, fences[0].High, 1e-9)
	assert.Equal(t, 1, fences[0].Violations)
	ids, _ := tb.Column("ID")
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestInspect(t *testing.T) {
	tb := load(t, "ID,class,air_time1,paper_time1,pressure1\n"+
		"a,P,10,5,-1\n"+
		"b,H,,6,2\n"+
		"a,H,30,7,3\n")
	in, err := Inspect(tb, "ID", "class")
	require.NoError(t, err)
	assert.Equal(t, 3, in.Rows)
	assert.Equal(t, 1, in.TotalMissing)
	assert.Equal(t, []string{"a"}, in.DuplicateIDs)
	require.Len(t, in.TimeStats, 2)
	assert.Equal(t, "air_time1", in.TimeStats[0].Column)
	assert.Equal(t, 2, in.TimeStats[0].Count)
	require.Len(t, in.Negative, 1)
	assert.Equal(t, "pressure1", in.Negative[0].Column)

	s := in.Summary()
	assert.Contains(t, s, "Initial data shape: (3, 5)")
	assert.Contains(t, s, "Duplicate IDs found: a")
	assert.Contains(t, s, "Time variable statistics:")
	assert.Contains(t, s, "pressure1: 1")
}
