package opseq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

func mkds(x, y []float64) *sheet.Datasheet {
	return sheet.NewDatasheet(
		sheet.NewColumn("x", x, false),
		sheet.NewColumn("y", y, false),
	)
}

func applyOne(t *testing.T, op string, ds *sheet.Datasheet) *sheet.Datasheet {
	seq, err := Parse(op)
	require.NoError(t, err)
	out, err := seq.Ops[0].Transform.Apply(ds)
	require.NoError(t, err)
	return out
}

func TestCDF(t *testing.T) {
	assert := assert.New(t)
	{
		out := applyOne(t, "c", mkds(
			[]float64{7, 8, 9},
			[]float64{3, 1, 2},
		))
		assert.Equal([]float64{1, 2, 3}, out.X.Data)
		assert.Equal(
			[]float64{1.0 / 3.0, 2.0 / 3.0, 1},
			out.Y.Data,
		)
		assert.True(out.X.Sorted)
		assert.True(out.X.Name == "y")
		assert.True(out.Y.Name == "CDF")
	}

	{
		seq, _ := Parse("c")
		_, err := seq.Ops[0].Transform.Apply(mkds(
			[]float64{1},
			[]float64{math.Inf(1)},
		))
		assert.Error(err)
		assert.Contains(err.Error(), "INF/NAN")
	}
}

func TestDerivative(t *testing.T) {
	assert := assert.New(t)
	{
		out := applyOne(t, "d1", mkds(
			[]float64{0, 1, 2, 3},
			[]float64{0, 2, 6, 12},
		))
		assert.Equal([]float64{1, 2, 3}, out.X.Data)
		assert.Equal([]float64{2, 4, 6}, out.Y.Data)
		assert.True(out.Y.Name == "y:Derivation")
	}

	{
		// window wider than the spacing skips intermediate points
		out := applyOne(t, "d2", mkds(
			[]float64{0, 1, 2, 3, 4},
			[]float64{0, 1, 4, 9, 16},
		))
		assert.Equal([]float64{2, 4}, out.X.Data)
		assert.Equal([]float64{2, 6}, out.Y.Data)
	}

	{
		// the input gets sorted first
		out := applyOne(t, "d1", mkds(
			[]float64{1, 0},
			[]float64{2, 0},
		))
		assert.Equal([]float64{1}, out.X.Data)
		assert.Equal([]float64{2}, out.Y.Data)
	}

	{
		seq, _ := Parse("d1")
		_, err := seq.Ops[0].Transform.Apply(mkds(
			[]float64{1, 1},
			[]float64{1, 2},
		))
		assert.Error(err)
		assert.Contains(err.Error(), "duplicated values")
	}
}

func TestDerivativeTwoSided(t *testing.T) {
	assert := assert.New(t)
	// y = x^2 over a uniform grid, the centered slope at x is 2x
	out := applyOne(t, "d1,1", mkds(
		[]float64{0, 1, 2, 3, 4},
		[]float64{0, 1, 4, 9, 16},
	))
	assert.Equal([]float64{1, 2, 3}, out.X.Data)
	assert.Equal([]float64{2, 4, 6}, out.Y.Data)
}

func TestIntegral(t *testing.T) {
	assert := assert.New(t)
	out := applyOne(t, "i", mkds(
		[]float64{1, 2, 3},
		[]float64{1, 2, 3},
	))
	assert.Equal([]float64{1, 3, 6}, out.Y.Data)
	assert.True(out.Y.Name == "y:Integral")
	assert.True(out.X.Sorted)
}

func TestMerge(t *testing.T) {
	assert := assert.New(t)
	{
		out := applyOne(t, "m", mkds(
			[]float64{1, 1, 2, 2, 2, 3},
			[]float64{1, 2, 3, 4, 5, 6},
		))
		assert.Equal([]float64{1, 2, 3}, out.X.Data)
		assert.Equal([]float64{3, 12, 6}, out.Y.Data)
		assert.False(out.X.Sorted)
	}

	{
		// merge never sorts, non adjacent duplicates stay separate
		out := applyOne(t, "m", mkds(
			[]float64{1, 2, 1},
			[]float64{1, 1, 1},
		))
		assert.Equal([]float64{1, 2, 1}, out.X.Data)
	}

	{
		out := applyOne(t, "m", mkds(nil, nil))
		assert.True(len(out.X.Data) == 0)
	}
}

func TestStep(t *testing.T) {
	assert := assert.New(t)
	{
		out := applyOne(t, "s", mkds(
			[]float64{0, 1, 2},
			[]float64{10, 12, 15},
		))
		assert.Equal([]float64{1, 2}, out.X.Data)
		assert.Equal([]float64{2, 3}, out.Y.Data)
	}

	{
		out := applyOne(t, "s", mkds([]float64{1}, []float64{1}))
		assert.True(len(out.X.Data) == 0)
	}
}

func TestAverage(t *testing.T) {
	assert := assert.New(t)
	{
		out := applyOne(t, "a1", mkds(
			[]float64{0, 1, 2},
			[]float64{0, 3, 6},
		))
		assert.Equal([]float64{1.5, 3, 4.5}, out.Y.Data)
		assert.True(out.Y.Name == "y:Average")
	}

	{
		// asymmetric window, only looking backwards
		out := applyOne(t, "a1,0", mkds(
			[]float64{0, 1, 2},
			[]float64{0, 4, 8},
		))
		assert.Equal([]float64{0, 2, 6}, out.Y.Data)
	}
}

func TestFilterFinite(t *testing.T) {
	assert := assert.New(t)
	out := applyOne(t, "f", mkds(
		[]float64{1, 2, 3, 4},
		[]float64{1, math.NaN(), math.Inf(1), 4},
	))
	assert.Equal([]float64{1, 4}, out.X.Data)
	assert.Equal([]float64{1, 4}, out.Y.Data)
	assert.True(out.Y.Name == "y:FilterFinite")
}

func TestUnique(t *testing.T) {
	assert := assert.New(t)
	out := applyOne(t, "u", mkds(
		[]float64{1, 1, 2, 3, 3},
		[]float64{10, 11, 12, 13, 14},
	))
	assert.Equal([]float64{1, 2, 3}, out.X.Data)
	assert.Equal([]float64{10, 12, 13}, out.Y.Data)
}

func TestSortRotate(t *testing.T) {
	assert := assert.New(t)
	{
		out := applyOne(t, "o", mkds(
			[]float64{3, 1, 2},
			[]float64{30, 10, 20},
		))
		assert.Equal([]float64{1, 2, 3}, out.X.Data)
		assert.Equal([]float64{10, 20, 30}, out.Y.Data)
		assert.True(out.X.Sorted)

		// idempotent
		again := applyOne(t, "o", out)
		assert.Equal([]float64{1, 2, 3}, again.X.Data)
	}

	{
		out := applyOne(t, "r", mkds(
			[]float64{1, 2},
			[]float64{10, 20},
		))
		assert.True(out.X.Name == "y")
		assert.True(out.Y.Name == "x")
		assert.Equal([]float64{10, 20}, out.X.Data)
	}
}

func TestMismatchedColumns(t *testing.T) {
	assert := assert.New(t)
	seq, _ := Parse("c")
	_, err := seq.Ops[0].Transform.Apply(mkds(
		[]float64{1, 2},
		[]float64{1},
	))
	assert.Error(err)
	assert.Contains(err.Error(), "different lengths")
}
