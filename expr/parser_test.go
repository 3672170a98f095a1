package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

func evalConst(t *testing.T, source string) float64 {
	e, err := Compile(source, nil)
	assert.NoError(t, err)
	v, err := e.Eval(nil, 0)
	assert.NoError(t, err)
	return v
}

func TestPrecedence(t *testing.T) {
	assert := assert.New(t)
	assert.True(evalConst(t, "1+2*3") == 7)
	assert.True(evalConst(t, "(1+2)*3") == 9)
	assert.True(evalConst(t, "10-4-3") == 3)
	assert.True(evalConst(t, "20/2/5") == 2)
	assert.True(evalConst(t, "7%4") == 3)
	assert.True(evalConst(t, "2*3^2") == 18)
	assert.True(evalConst(t, "-2^2") == 4)
	assert.True(evalConst(t, "2^-1") == 0.5)
}

func TestPowGroupsLeft(t *testing.T) {
	assert := assert.New(t)
	// (2^3)^2, not 2^(3^2)
	assert.True(evalConst(t, "2^3^2") == 64)
	assert.True(evalConst(t, "2^(3^2)") == 512)
}

func TestParseErrors(t *testing.T) {
	assert := assert.New(t)
	{
		_, err := Compile("1+", nil)
		assert.Error(err)
		assert.Contains(err.Error(), "unexpected token")
		assert.Contains(err.Error(), "end of input")
	}

	{
		_, err := Compile("(1+2", nil)
		assert.Error(err)
		assert.Contains(err.Error(), "mismatched parentheses")
	}

	{
		_, err := Compile("1 2", nil)
		assert.Error(err)
		assert.Contains(err.Error(), "unexpected token")
	}

	{
		_, err := Compile("", nil)
		assert.Error(err)
	}

	{
		// the offending expression shows up in the message
		_, err := Compile("1+$", nil)
		assert.Error(err)
		assert.Contains(err.Error(), `expression "1+$"`)
	}
}

func TestEvalColumns(t *testing.T) {
	assert := assert.New(t)
	tab := &sheet.Table{
		Names: []string{"1", "2"},
		Cols:  [][]float64{{1, 3}, {2, 4}},
	}

	{
		e, err := Compile("#1+#2", tab)
		assert.NoError(err)
		out, err := EvalColumn(e, tab)
		assert.NoError(err)
		assert.Equal([]float64{3, 7}, out)
	}

	{
		e, err := Compile("#2*10-#1", tab)
		assert.NoError(err)
		out, err := EvalColumn(e, tab)
		assert.NoError(err)
		assert.Equal([]float64{19, 37}, out)
	}

	{
		e, err := Compile("#3", tab)
		assert.NoError(err)
		_, err = EvalColumn(e, tab)
		assert.Error(err)
		assert.Contains(err.Error(), "column #3 not found")
	}

	{
		// division by zero is a hard error, not a propagated INF
		e, err := Compile("#1/0", tab)
		assert.NoError(err)
		_, err = EvalColumn(e, tab)
		assert.Error(err)
		assert.Contains(err.Error(), "non-finite result (inf or NaN)")
	}
}

func TestEvalRaggedColumns(t *testing.T) {
	assert := assert.New(t)
	tab := &sheet.Table{
		Names: []string{"1", "2"},
		Cols:  [][]float64{{1, 2}, {1}},
	}
	e, err := Compile("#1+#2", tab)
	assert.NoError(err)
	_, err = EvalColumn(e, tab)
	assert.Error(err)
	assert.Contains(err.Error(), "different lengths")
}

func TestIsConstant(t *testing.T) {
	assert := assert.New(t)
	assert.True(IsConstant("1+2*3"))
	assert.True(IsConstant("log(10)"))
	assert.False(IsConstant("#1+1"))
	assert.False(IsConstant("@time@"))
}

func TestIsSingleColumn(t *testing.T) {
	assert := assert.New(t)
	assert.True(IsSingleColumn("#1"))
	assert.True(IsSingleColumn("#ab"))
	assert.True(IsSingleColumn(" #2 "))
	assert.True(IsSingleColumn("@time@"))
	assert.True(IsSingleColumn(`@lat\@ms@`))
	assert.False(IsSingleColumn("#1+1"))
	assert.False(IsSingleColumn("#"))
	assert.False(IsSingleColumn("@a@+@b@"))
	assert.False(IsSingleColumn("1"))
}

func TestProcess(t *testing.T) {
	assert := assert.New(t)
	tab := &sheet.Table{
		Names: []string{"1", "2"},
		Cols:  [][]float64{{1, 2, 3}, {10, 20, 30}},
	}

	{
		ds, err := Process(tab, "#1", "#2/10")
		assert.NoError(err)
		assert.True(ds.X.Name == "#1")
		assert.True(ds.Y.Name == "#2/10")
		assert.Equal([]float64{1, 2, 3}, ds.X.Data)
		assert.Equal([]float64{1, 2, 3}, ds.Y.Data)
		assert.False(ds.X.Sorted)
	}

	{
		// constant expressions broadcast to every row
		ds, err := Process(tab, "2+3", "#2")
		assert.NoError(err)
		assert.Equal([]float64{5, 5, 5}, ds.X.Data)
	}
}
