package reduce

import (
	"errors"
	"math"
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

func TestDropLowVariance(t *testing.T) {
	tb := load(t, "ID,a,b,c\ns1,1,5,7\ns2,1.0001,6,\ns3,1,7,\n")
	dropped, err := DropLowVariance(tb, []string{"a", "b", "c"}, 1e-3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, dropped)
	// c has a single value, so no variance and it stays
	assert.Equal(t, []string{"ID", "b", "c"}, tb.Columns)
}

func TestDropCorrelated(t *testing.T) {
	tb := load(t, "a,b,c,d\n1,2,5,-1\n2,4,3,-2\n3,6,4,-3\n4,8,1,-4\n")
	dropped, err := DropCorrelated(tb, []string{"a", "b", "c", "d"}, 0.95)
	require.NoError(t, err)
	// b = 2a and d = -a; c is weakly related
	assert.Equal(t, []string{"b", "d"}, dropped)
	assert.Equal(t, []string{"a", "c"}, tb.Columns)
}

func TestRoundHalfToEven(t *testing.T) {
	tb := load(t, "x\n0.25\n0.35\n1.04\n\n-2.66\n")
	require.NoError(t, Round(tb, []string{"x"}, 1))
	x, _ := tb.Column("x")
	assert.Equal(t, []string{"0.2", "0.4", "1", "-2.7"}, x)
}

func TestStandardize(t *testing.T) {
	tb := load(t, "x,k\n1,5\n2,5\n3,5\n")
	scales, err := Standardize(tb, []string{"x", "k"})
	require.NoError(t, err)
	require.Len(t, scales, 2)
	assert.InDelta(t, 2.0, scales[0].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), scales[0].Std, 1e-12)
	assert.Equal(t, 1.0, scales[1].Std)

	x, _ := tb.Floats("x")
	assert.InDelta(t, -1.224744871, x[0], 1e-9)
	assert.InDelta(t, 0, x[1], 1e-12)
	k, _ := tb.Column("k")
	assert.Equal(t, []string{"0", "0", "0"}, k)
}

func TestGroupMean(t *testing.T) {
	tb := load(t, "ID,trial,a,label\ns1,1,1,x\ns1,2,3,y\ns2,1,10,z\ns2,2,,z\n")
	out, err := GroupMean(tb, "ID", []string{"trial", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "trial", "a"}, out.Columns)
	assert.Equal(t, [][]string{{"s1", "1.5", "2"}, {"s2", "1.5", "10"}}, out.Rows)

	_, err = GroupMean(tb, "subject", nil)
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))
}

func TestPCA(t *testing.T) {
	tb := load(t, "ID,a,b\ns1,1,2\ns2,2,4.1\ns3,3,5.9\ns4,4,8\n")
	res, err := PCA(tb, []string{"a", "b"}, 2, []string{"ID"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "PC1", "PC2"}, res.Table.Columns)
	require.Len(t, res.ExplainedRatio, 2)
	assert.Greater(t, res.ExplainedRatio[0], 0.99)
	assert.InDelta(t, 1.0, res.ExplainedRatio[0]+res.ExplainedRatio[1], 1e-9)

	pc1, _ := res.Table.Floats("PC1")
	var sum float64
	for _, v := range pc1 {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-9, "projected scores are centered")

	_, err = PCA(tb, []string{"a", "b"}, 3, nil)
	assert.Error(t, err)

	gap := load(t, "a,b\n1,\n2,3\n")
	_, err = PCA(gap, []string{"a", "b"}, 1, nil)
	assert.True(t, errors.Is(err, ErrMissingValues))
}

func TestDiscretize(t *testing.T) {
	tb := load(t, "u,q,c\n0,1,4\n2.5,2,4\n5,3,4\n7.5,4,4\n10,100,4\n,5,4\n")
	bins, err := Discretize(tb, []string{"u"}, 4, Uniform)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2.5, 5, 7.5, 10}, bins[0].Edges)
	u, _ := tb.Column("u")
	assert.Equal(t, []string{"0", "1", "2", "3", "3", ""}, u)

	_, err = Discretize(tb, []string{"q"}, 2, Quantile)
	require.NoError(t, err)
	q, _ := tb.Column("q")
	assert.Equal(t, []string{"0", "0", "0", "1", "1", "1"}, q)

	_, err = Discretize(tb, []string{"c"}, 3, Uniform)
	require.NoError(t, err)
	c, _ := tb.Column("c")
	assert.Equal(t, []string{"0", "0", "0", "0", "0", "0"}, c)

	_, err = Discretize(tb, []string{"u"}, 1, Uniform)
	assert.Error(t, err)

	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Uniform, s)
	_, err = ParseStrategy("kmeans")
	assert.Error(t, err)
}
