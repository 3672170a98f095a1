package sheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadTable(t *testing.T) {
	assert := assert.New(t)
	{
		tab, err := ReadTable(strings.NewReader("1,2,3\n4,5,6\n"), false)
		assert.NoError(err)
		assert.True(tab.ColumnCount() == 3)
		assert.True(tab.RowCount() == 2)
		assert.Equal([]string{"1", "2", "3"}, tab.Names)
		assert.Equal([]float64{1, 4}, tab.Cols[0])
		assert.Equal([]float64{3, 6}, tab.Cols[2])
	}

	{
		tab, err := ReadTable(strings.NewReader("time,lat\n1,10\n2,20\n"), true)
		assert.NoError(err)
		idx, ok := tab.ColumnIndex("lat")
		assert.True(ok)
		assert.True(idx == 1)
		_, ok = tab.ColumnIndex("lon")
		assert.False(ok)
		assert.Equal([]float64{10, 20}, tab.Cols[1])
	}

	{
		_, err := ReadTable(strings.NewReader("1,2\n3\n"), false)
		assert.Error(err)
		assert.Contains(err.Error(), "record #1")
	}

	{
		_, err := ReadTable(strings.NewReader("1,abc\n"), false)
		assert.Error(err)
		assert.Contains(err.Error(), `"abc"`)
	}
}

func TestFormat(t *testing.T) {
	assert := assert.New(t)
	{
		f, err := ParseFormat("csv", true)
		assert.NoError(err)
		assert.True(f.Kind == FormatCSV)
		assert.True(f.HasHeader)
		assert.True(f.String() == "csv(true)")
	}

	{
		// the parenthesized form round-trips through String
		f, err := ParseFormat("csv(false)", true)
		assert.NoError(err)
		assert.False(f.HasHeader)
		back, err := ParseFormat(f.String(), true)
		assert.NoError(err)
		assert.True(back == f)
	}

	{
		f, err := ParseFormat("lnk", false)
		assert.NoError(err)
		assert.True(f.Kind == FormatSPLNK)
		assert.True(f.String() == "splnk")
	}

	{
		_, err := ParseFormat("xlsx", false)
		assert.Error(err)
	}
}
