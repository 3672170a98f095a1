package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shift-AC/spreadsheet-plotter/opseq"
	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

func testHeader(opstr string) Header {
	return Header{
		InputPath:    "in.csv",
		XExpr:        "#1",
		YExpr:        "#2",
		InputFormat:  "csv(true)",
		OutputFormat: "csv(true)",
		OpStr:        opstr,
	}
}

func testSheet() *sheet.Datasheet {
	return sheet.NewDatasheet(
		sheet.NewColumn("x", []float64{1, 2.5}, true),
		sheet.NewColumn("y", []float64{10, 20}, false),
	)
}

func TestCheckpointRoundTrip(t *testing.T) {
	assert := assert.New(t)
	cp := &Checkpoint{
		Header: testHeader("co"),
		DS:     testSheet(),
	}

	buf := &bytes.Buffer{}
	assert.NoError(cp.Write(buf))
	assert.Contains(buf.String(), headerDelimiter)
	assert.Contains(buf.String(), "opstr = ")

	back, err := Read(buf)
	assert.NoError(err)
	assert.Equal(cp.Header, back.Header)
	assert.Equal(cp.DS.X.Data, back.DS.X.Data)
	assert.Equal(cp.DS.Y.Data, back.DS.Y.Data)
	assert.True(back.DS.X.Name == "x")
}

func TestCheckpointBadPayloadFormat(t *testing.T) {
	assert := assert.New(t)
	hdr := testHeader("c")
	hdr.OutputFormat = "splnk"
	cp := &Checkpoint{
		Header: hdr,
		DS:     testSheet(),
	}
	err := cp.Write(&bytes.Buffer{})
	assert.Error(err)
	assert.Contains(err.Error(), "illegal checkpoint payload format")
}

func TestCheckpointMissingDelimiter(t *testing.T) {
	assert := assert.New(t)
	_, err := Read(strings.NewReader("input_path = 'in.csv'\n"))
	assert.Error(err)
	assert.Contains(err.Error(), "delimiter not found")
}

func TestDirAppendMatch(t *testing.T) {
	assert := assert.New(t)
	dir, err := OpenDir(t.TempDir(), nil)
	assert.NoError(err)
	defer dir.Close()

	assert.NoError(dir.Append(&Checkpoint{
		Header: testHeader("c"),
		DS:     testSheet(),
	}))
	assert.NoError(dir.Append(&Checkpoint{
		Header: testHeader("cod5"),
		DS:     testSheet(),
	}))
	assert.True(len(dir.Entries()) == 2)
	assert.True(dir.Entries()[0].Seq == 1)
	assert.True(dir.Entries()[1].Seq == 2)

	seq, err := opseq.Parse("cCod5O")
	assert.NoError(err)

	key := testHeader("")
	{
		// the deepest stored prefix wins
		e, resume, ok := dir.Match(&key, seq)
		assert.True(ok)
		assert.True(e.Header.OpStr == "cod5")
		assert.True(resume == 4)
	}

	{
		// a different source never matches
		other := testHeader("")
		other.XExpr = "#3"
		_, _, ok := dir.Match(&other, seq)
		assert.False(ok)
	}

	{
		// an unrelated sequence never matches
		seq, err := opseq.Parse("mO")
		assert.NoError(err)
		_, _, ok := dir.Match(&key, seq)
		assert.False(ok)
	}
}

func TestDirRescan(t *testing.T) {
	assert := assert.New(t)
	path := t.TempDir()

	dir, err := OpenDir(path, nil)
	assert.NoError(err)
	assert.NoError(dir.Append(&Checkpoint{
		Header: testHeader("o"),
		DS:     testSheet(),
	}))
	assert.NoError(dir.Close())

	// a fresh open sees the persisted entry and extends its numbering
	dir, err = OpenDir(path, nil)
	assert.NoError(err)
	defer dir.Close()
	assert.True(len(dir.Entries()) == 1)
	assert.True(dir.Entries()[0].Header.OpStr == "o")

	assert.NoError(dir.Append(&Checkpoint{
		Header: testHeader("om"),
		DS:     testSheet(),
	}))
	assert.True(dir.Entries()[1].Seq == 2)

	loaded, err := dir.Load(&dir.Entries()[0])
	assert.NoError(err)
	assert.Equal([]float64{1, 2.5}, loaded.DS.X.Data)
}

func TestDirCorruptHistory(t *testing.T) {
	assert := assert.New(t)
	path := t.TempDir()

	write := func(name, opstr string) {
		f, err := os.Create(filepath.Join(path, name))
		assert.NoError(err)
		cp := &Checkpoint{
			Header: testHeader(opstr),
			DS:     testSheet(),
		}
		assert.NoError(cp.Write(f))
		assert.NoError(f.Close())
	}

	// the second entry does not extend the first
	write("0001.splnk", "co")
	write("0002.splnk", "om")

	_, err := OpenDir(path, nil)
	assert.Error(err)
	assert.Contains(err.Error(), "corrupt cache history")
}

func TestDirIgnoresForeignFiles(t *testing.T) {
	assert := assert.New(t)
	path := t.TempDir()
	assert.NoError(os.WriteFile(
		filepath.Join(path, "notes.txt"),
		[]byte("hello"),
		0644,
	))

	dir, err := OpenDir(path, nil)
	assert.NoError(err)
	defer dir.Close()
	assert.True(len(dir.Entries()) == 0)
}
